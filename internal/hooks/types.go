package hooks

import (
	"context"
	"errors"
)

// Stage represents a lifecycle stage hooks can be registered against.
type Stage string

const (
	// StagePreInit runs before application initialization
	StagePreInit Stage = "pre_init"

	// StagePostInit runs after application initialization
	StagePostInit Stage = "post_init"

	// StagePreRuntime runs before the application's main work starts
	StagePreRuntime Stage = "pre_runtime"

	// StagePostRuntime runs after the application's main work finishes
	StagePostRuntime Stage = "post_runtime"
)

// stageOrder is the fixed order of the closed stage set.
var stageOrder = [...]Stage{StagePreInit, StagePostInit, StagePreRuntime, StagePostRuntime}

// Stages returns the known stages in lifecycle order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder[:])
	return out
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	for _, known := range stageOrder {
		if s == known {
			return true
		}
	}
	return false
}

func (s Stage) String() string {
	return string(s)
}

var (
	// ErrInvalidStage indicates a stage outside the known set
	ErrInvalidStage = errors.New("invalid stage")

	// ErrNilHook indicates a nil hook was passed to Register
	ErrNilHook = errors.New("hook cannot be nil")

	// ErrHookPanic indicates a hook panicked during execution
	ErrHookPanic = errors.New("hook panicked")

	// ErrNoImporter indicates LoadPlugins was called without an Importer
	ErrNoImporter = errors.New("no plugin importer configured")
)

// Args carries the positional and keyword arguments forwarded to hooks.
type Args struct {
	Positional []any
	Keyword    map[string]any
}

// NewArgs returns Args holding the given positional arguments.
func NewArgs(positional ...any) Args {
	return Args{Positional: positional}
}

// With returns a copy of a with the keyword argument key set to value.
func (a Args) With(key string, value any) Args {
	kw := make(map[string]any, len(a.Keyword)+1)
	for k, v := range a.Keyword {
		kw[k] = v
	}
	kw[key] = value
	a.Keyword = kw
	return a
}

// Hook is a function registered against a stage.
type Hook func(ctx context.Context, args Args) error

// Module is a unit of hooks bound together, either compiled in or produced
// by an Importer. A nil field means the module has no hook for that stage.
type Module struct {
	Name string
	Path string

	PreInit     Hook
	PostInit    Hook
	PreRuntime  Hook
	PostRuntime Hook
}

// Hook returns the module's hook for stage, or nil.
func (m Module) Hook(stage Stage) Hook {
	switch stage {
	case StagePreInit:
		return m.PreInit
	case StagePostInit:
		return m.PostInit
	case StagePreRuntime:
		return m.PreRuntime
	case StagePostRuntime:
		return m.PostRuntime
	default:
		return nil
	}
}

// Set stores h as the module's hook for stage. Unknown stages are ignored.
func (m *Module) Set(stage Stage, h Hook) {
	switch stage {
	case StagePreInit:
		m.PreInit = h
	case StagePostInit:
		m.PostInit = h
	case StagePreRuntime:
		m.PreRuntime = h
	case StagePostRuntime:
		m.PostRuntime = h
	}
}

// Outcome describes what Execute did for a stage.
type Outcome int

const (
	// OutcomeExecuted means the stage had hooks and they were called
	OutcomeExecuted Outcome = iota

	// OutcomeInvalidStage means the stage was not a known stage
	OutcomeInvalidStage

	// OutcomeEmptyStage means the stage had no registered hooks
	OutcomeEmptyStage
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExecuted:
		return "executed"
	case OutcomeInvalidStage:
		return "invalid_stage"
	case OutcomeEmptyStage:
		return "empty_stage"
	default:
		return "unknown"
	}
}

// Result is the outcome of one Execute call.
type Result struct {
	Stage   Stage
	Outcome Outcome
	// Called is the number of hooks invoked, including failing ones.
	Called int
}
