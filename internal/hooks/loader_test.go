package hooks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/programhooks/internal/logging"
	"github.com/fyrsmithlabs/programhooks/internal/telemetry"
)

// fakeImporter returns canned modules keyed by module name and records
// every import call.
type fakeImporter struct {
	pattern string
	modules map[string]Module
	fail    map[string]error

	mu    sync.Mutex
	calls []string
}

func (f *fakeImporter) Pattern() string { return f.pattern }

func (f *fakeImporter) Import(_ context.Context, name, _ string) (Module, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	if err, ok := f.fail[name]; ok {
		return Module{}, err
	}
	return f.modules[name], nil
}

func (f *fakeImporter) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("-- plugin\n"), 0600))
	return path
}

func noop(context.Context, Args) error { return nil }

func TestLoadPlugins_ImportsByModuleName(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "plugin1.py")

	imp := &fakeImporter{
		pattern: "*.py",
		modules: map[string]Module{"plugin1": {PreInit: noop}},
	}
	hm := NewHookManager(nil, WithImporter(imp))

	report, err := hm.LoadPlugins(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"plugin1"}, imp.Calls())
	require.Len(t, report.Loaded, 1)
	assert.Equal(t, "plugin1", report.Loaded[0].Name)
	assert.Equal(t, filepath.Join(dir, "plugin1.py"), report.Loaded[0].Path)
	assert.Equal(t, []Stage{StagePreInit}, report.Loaded[0].Stages)
	assert.Equal(t, 1, hm.Count(StagePreInit))
}

func TestLoadPlugins_OnlyMatchingFilesNonRecursive(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.lua")
	touch(t, dir, "a.lua")
	touch(t, dir, "README.md")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.lua"), 0700))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0700))
	touch(t, filepath.Join(dir, "sub"), "deep.lua")

	imp := &fakeImporter{pattern: "*.lua", modules: map[string]Module{}}
	hm := NewHookManager(nil, WithImporter(imp))

	_, err := hm.LoadPlugins(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, imp.Calls())
}

func TestLoadPlugins_FailureIsIsolated(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "bad.lua")
	touch(t, dir, "good.lua")

	importErr := errors.New("syntax error near 'end'")
	imp := &fakeImporter{
		pattern: "*.lua",
		modules: map[string]Module{"good": {PostRuntime: noop, PreRuntime: noop}},
		fail:    map[string]error{"bad": importErr},
	}
	tl := logging.NewTestLogger()
	hm := NewHookManager(nil, WithImporter(imp), WithLogger(tl.Logger))

	report, err := hm.LoadPlugins(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, "bad", report.Failures[0].Name)
	assert.True(t, errors.Is(report.Failures[0].Err, importErr))

	require.Len(t, report.Loaded, 1)
	assert.Equal(t, []Stage{StagePreRuntime, StagePostRuntime}, report.Loaded[0].Stages)
	assert.Equal(t, 1, hm.Count(StagePreRuntime))
	assert.Equal(t, 1, hm.Count(StagePostRuntime))

	tl.AssertLogged(t, zapcore.ErrorLevel, "failed to load plugin")
	tl.AssertField(t, "failed to load plugin", "module", "bad")
}

func TestLoadPlugins_EmptyDirectory(t *testing.T) {
	imp := &fakeImporter{pattern: "*.lua"}
	hm := NewHookManager(nil, WithImporter(imp))

	report, err := hm.LoadPlugins(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, report.Loaded)
	assert.Empty(t, report.Failures)
	assert.Empty(t, imp.Calls())
	for _, stage := range Stages() {
		assert.Zero(t, hm.Count(stage))
	}
}

func TestLoadPlugins_MissingDirectory(t *testing.T) {
	hm := NewHookManager(nil, WithImporter(&fakeImporter{pattern: "*.lua"}))
	_, err := hm.LoadPlugins(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading plugin directory")
}

func TestLoadPlugins_InvalidPattern(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "x.lua")
	hm := NewHookManager(nil, WithImporter(&fakeImporter{pattern: "["}))
	_, err := hm.LoadPlugins(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid plugin pattern")
}

func TestLoadPlugins_NoImporter(t *testing.T) {
	hm := NewHookManager(nil)
	_, err := hm.LoadPlugins(context.Background(), t.TempDir())
	assert.True(t, errors.Is(err, ErrNoImporter))
}

func TestLoadPlugins_Span(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "one.lua")
	tt := telemetry.NewTestTelemetry()
	hm := NewHookManager(nil,
		WithImporter(&fakeImporter{pattern: "*.lua", modules: map[string]Module{"one": {PreInit: noop}}}),
		WithTracer(tt.Tracer("test")),
	)

	_, err := hm.LoadPlugins(context.Background(), dir)
	require.NoError(t, err)
	tt.AssertSpanAttribute(t, "hooks.LoadPlugins", "plugins.loaded", int64(1))
	tt.AssertSpanAttribute(t, "hooks.LoadPlugins", "plugins.failed", int64(0))
}

func TestModuleName(t *testing.T) {
	assert.Equal(t, "plugin1", ModuleName("/some/fake/folder/plugin1.lua"))
	assert.Equal(t, "archive.tar", ModuleName("archive.tar.gz"))
	assert.Equal(t, "noext", ModuleName("dir/noext"))
}

func TestWatcher_LoadsNewPlugins(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "initial.lua")

	imp := &fakeImporter{
		pattern: "*.lua",
		modules: map[string]Module{
			"initial": {PreInit: noop},
			"late":    {PostInit: noop},
		},
	}
	hm := NewHookManager(nil, WithImporter(imp))

	w, err := NewWatcher(hm, dir)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	report, err := w.Start(ctx)
	require.NoError(t, err)
	require.Len(t, report.Loaded, 1)
	assert.Equal(t, 1, hm.Count(StagePreInit))

	// Rename so the file appears complete in a single event
	tmp := touch(t, dir, "late.tmp")
	require.NoError(t, os.Rename(tmp, filepath.Join(dir, "late.lua")))

	select {
	case loaded := <-w.Events():
		assert.Equal(t, "late", loaded.Name)
		assert.Equal(t, []Stage{StagePostInit}, loaded.Stages)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher to load late.lua")
	}

	assert.Equal(t, 1, hm.Count(StagePreInit), "initial plugin not loaded twice")
	assert.Equal(t, 1, hm.Count(StagePostInit))
}

func TestWatcher_IgnoresBoundPlugins(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, dir, "initial.lua")

	imp := &fakeImporter{
		pattern: "*.lua",
		modules: map[string]Module{"initial": {PreInit: noop}},
	}
	hm := NewHookManager(nil, WithImporter(imp))

	w, err := NewWatcher(hm, dir)
	require.NoError(t, err)
	defer w.Stop()

	_, err = w.Start(context.Background())
	require.NoError(t, err)

	w.handleFileChange(context.Background(), path)
	w.handleFileChange(context.Background(), filepath.Join(dir, "notes.txt"))

	assert.Equal(t, []string{"initial"}, imp.Calls())
	assert.Equal(t, 1, hm.Count(StagePreInit))
}

func TestNewWatcher_NoImporter(t *testing.T) {
	_, err := NewWatcher(NewHookManager(nil), t.TempDir())
	assert.True(t, errors.Is(err, ErrNoImporter))
}
