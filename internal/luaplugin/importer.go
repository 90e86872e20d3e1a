// Package luaplugin imports Lua source files as hook modules.
//
// Each plugin file runs in its own Lua state. Global functions named
// pre_init, post_init, pre_runtime or post_runtime become hooks. A hook is
// called with the positional arguments in order, followed by one table of
// keyword arguments (empty when there are none):
//
//	function pre_runtime(port, opts)
//	  print("starting on " .. port .. " as " .. opts.user)
//	end
//
// Calling error() inside a hook fails it with a Go error.
package luaplugin

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/programhooks/internal/hooks"
	"github.com/fyrsmithlabs/programhooks/internal/logging"
)

// DefaultPattern matches Lua plugin files.
const DefaultPattern = "*.lua"

// Importer implements hooks.Importer for Lua source files.
type Importer struct {
	pattern string
	logger  *logging.Logger

	mu     sync.Mutex
	states []*lua.LState
}

// Option configures an Importer.
type Option func(*Importer)

// WithPattern overrides the file name pattern.
func WithPattern(pattern string) Option {
	return func(i *Importer) {
		if pattern != "" {
			i.pattern = pattern
		}
	}
}

// WithLogger sets the importer's logger.
func WithLogger(l *logging.Logger) Option {
	return func(i *Importer) {
		if l != nil {
			i.logger = l.Named("luaplugin")
		}
	}
}

// NewImporter creates a Lua importer.
func NewImporter(opts ...Option) *Importer {
	i := &Importer{
		pattern: DefaultPattern,
		logger:  logging.FromContext(context.Background()),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

var _ hooks.Importer = (*Importer)(nil)

// Pattern returns the glob plugin file names must match.
func (i *Importer) Pattern() string {
	return i.pattern
}

// Import runs the file at path in a fresh Lua state and binds its
// stage-named global functions.
func (i *Importer) Import(ctx context.Context, name, path string) (hooks.Module, error) {
	L := lua.NewState()
	L.SetContext(ctx)
	if err := L.DoFile(path); err != nil {
		L.Close()
		return hooks.Module{}, fmt.Errorf("executing %s: %w", path, err)
	}
	// The load context must not cancel later hook calls.
	L.RemoveContext()

	m := &module{name: name, state: L}
	out := hooks.Module{Name: name, Path: path}
	bound := 0
	for _, stage := range hooks.Stages() {
		v := L.GetGlobal(string(stage))
		switch fn := v.(type) {
		case *lua.LNilType:
			continue
		case *lua.LFunction:
			out.Set(stage, m.hook(stage, fn))
			bound++
		default:
			i.logger.Debug(ctx, "ignoring non-function stage global",
				zap.String("module", name),
				zap.String("stage", string(stage)),
				zap.String("type", v.Type().String()),
			)
		}
	}

	if bound == 0 {
		L.Close()
		return out, nil
	}

	i.mu.Lock()
	i.states = append(i.states, L)
	i.mu.Unlock()
	return out, nil
}

// Close releases every Lua state created by Import. Hooks from closed
// modules must not be executed afterwards.
func (i *Importer) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, L := range i.states {
		L.Close()
	}
	i.states = nil
}

// module is one imported Lua file.
type module struct {
	name string

	mu    sync.Mutex
	state *lua.LState
}

// hook wraps a Lua function as a hooks.Hook.
func (m *module) hook(stage hooks.Stage, fn *lua.LFunction) hooks.Hook {
	return func(ctx context.Context, args hooks.Args) error {
		m.mu.Lock()
		defer m.mu.Unlock()

		logging.FromContext(ctx).Trace(ctx, "calling lua hook",
			zap.String("module", m.name),
			zap.String("stage", string(stage)),
		)

		L := m.state
		L.SetContext(ctx)
		defer L.RemoveContext()

		callArgs := make([]lua.LValue, 0, len(args.Positional)+1)
		for _, v := range args.Positional {
			callArgs = append(callArgs, ToLua(L, v))
		}
		callArgs = append(callArgs, ToLua(L, args.Keyword))

		if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, callArgs...); err != nil {
			return fmt.Errorf("lua %s.%s: %w", m.name, stage, err)
		}
		return nil
	}
}
