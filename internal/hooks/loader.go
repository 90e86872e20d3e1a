package hooks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Importer turns a plugin source file into a Module.
type Importer interface {
	// Pattern is the glob plugin file names must match, e.g. "*.lua".
	Pattern() string

	// Import loads the file at path. name is the file name without extension.
	Import(ctx context.Context, name, path string) (Module, error)
}

// LoadedModule describes one successfully imported plugin.
type LoadedModule struct {
	Name   string
	Path   string
	Stages []Stage
}

// LoadFailure describes one plugin file that failed to import.
type LoadFailure struct {
	Name string
	Path string
	Err  error
}

// LoadReport summarises a LoadPlugins call.
type LoadReport struct {
	Dir      string
	Loaded   []LoadedModule
	Failures []LoadFailure
}

// Importer returns the importer used by LoadPlugins, or nil.
func (h *HookManager) Importer() Importer {
	return h.importer
}

// LoadPlugins imports every file in dir matching the importer's pattern
// (non-recursive) and registers the hooks each module defines.
//
// A file that fails to import is logged and recorded in the report; the scan
// continues with the remaining files. An error is returned only when the
// directory itself cannot be scanned or no importer is configured.
func (h *HookManager) LoadPlugins(ctx context.Context, dir string) (*LoadReport, error) {
	if h.importer == nil {
		return nil, ErrNoImporter
	}

	ctx, span := h.tracer.Start(ctx, "hooks.LoadPlugins",
		trace.WithAttributes(attribute.String("plugins.dir", dir)),
	)
	defer span.End()

	paths, err := h.matchPlugins(dir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		return nil, err
	}

	report := &LoadReport{Dir: dir}
	for _, path := range paths {
		loaded, err := h.LoadPlugin(ctx, path)
		if err != nil {
			report.Failures = append(report.Failures, LoadFailure{
				Name: ModuleName(path),
				Path: path,
				Err:  err,
			})
			continue
		}
		report.Loaded = append(report.Loaded, loaded)
	}

	span.SetAttributes(
		attribute.Int("plugins.loaded", len(report.Loaded)),
		attribute.Int("plugins.failed", len(report.Failures)),
	)
	h.logger.Info(ctx, "plugins loaded",
		zap.String("dir", dir),
		zap.Int("loaded", len(report.Loaded)),
		zap.Int("failed", len(report.Failures)),
	)
	return report, nil
}

// LoadPlugin imports a single plugin file and registers its hooks.
func (h *HookManager) LoadPlugin(ctx context.Context, path string) (LoadedModule, error) {
	if h.importer == nil {
		return LoadedModule{}, ErrNoImporter
	}

	name := ModuleName(path)
	m, err := h.importer.Import(ctx, name, path)
	if err != nil {
		recordPluginLoad(false)
		h.logger.Error(ctx, "failed to load plugin",
			zap.String("module", name),
			zap.String("path", path),
			zap.Error(err),
		)
		return LoadedModule{}, fmt.Errorf("importing plugin %s: %w", name, err)
	}
	recordPluginLoad(true)

	if m.Name == "" {
		m.Name = name
	}
	if m.Path == "" {
		m.Path = path
	}
	h.RegisterModuleHooks(m)

	loaded := LoadedModule{Name: m.Name, Path: m.Path}
	for _, stage := range stageOrder {
		if m.Hook(stage) != nil {
			loaded.Stages = append(loaded.Stages, stage)
		}
	}
	return loaded, nil
}

// matchPlugins lists files in dir matching the importer pattern, sorted by name.
func (h *HookManager) matchPlugins(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading plugin directory %s: %w", dir, err)
	}

	pattern := h.importer.Pattern()
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ok, err := filepath.Match(pattern, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("invalid plugin pattern %q: %w", pattern, err)
		}
		if ok {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// MatchesPattern reports whether the base name of path matches the importer pattern.
func (h *HookManager) MatchesPattern(path string) bool {
	if h.importer == nil {
		return false
	}
	ok, err := filepath.Match(h.importer.Pattern(), filepath.Base(path))
	return err == nil && ok
}

// ModuleName derives a module name from a plugin path by stripping the
// directory and extension.
func ModuleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
