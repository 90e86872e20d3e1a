package hooks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/programhooks/internal/logging"
)

const (
	loggerName = "HookManager"
	tracerName = "github.com/fyrsmithlabs/programhooks/internal/hooks"
)

// HookManager manages lifecycle hooks
type HookManager struct {
	config   *Config
	logger   *logging.Logger
	tracer   trace.Tracer
	importer Importer

	mu       sync.RWMutex
	handlers map[Stage][]Hook
}

// Option configures a HookManager.
type Option func(*HookManager)

// WithLogger sets the logger; it is renamed to "HookManager".
func WithLogger(l *logging.Logger) Option {
	return func(h *HookManager) {
		if l != nil {
			h.logger = l.Named(loggerName)
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(h *HookManager) {
		if t != nil {
			h.tracer = t
		}
	}
}

// WithImporter sets the importer used by LoadPlugins.
func WithImporter(imp Importer) Option {
	return func(h *HookManager) {
		h.importer = imp
	}
}

// NewHookManager creates a new hook manager with every stage present and empty.
// A nil config uses DefaultConfig.
func NewHookManager(config *Config, opts ...Option) *HookManager {
	if config == nil {
		config = DefaultConfig()
	}
	h := &HookManager{
		config:   config,
		logger:   logging.FromContext(context.Background()).Named(loggerName),
		tracer:   otel.GetTracerProvider().Tracer(tracerName),
		handlers: make(map[Stage][]Hook, len(stageOrder)),
	}
	for _, stage := range stageOrder {
		h.handlers[stage] = []Hook{}
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register appends a hook for stage.
func (h *HookManager) Register(stage Stage, hook Hook) error {
	ctx := context.Background()
	if !stage.Valid() {
		h.reportInvalidStage(ctx, stage)
		return fmt.Errorf("registering hook: %w: %q", ErrInvalidStage, stage)
	}
	if hook == nil {
		return fmt.Errorf("registering hook for %s: %w", stage, ErrNilHook)
	}

	h.add(ctx, stage, hook)
	return nil
}

// add appends an already validated hook to stage.
func (h *HookManager) add(ctx context.Context, stage Stage, hook Hook) {
	h.mu.Lock()
	h.handlers[stage] = append(h.handlers[stage], hook)
	n := len(h.handlers[stage])
	h.mu.Unlock()

	hooksRegistered.WithLabelValues(string(stage)).Inc()
	h.logger.Debug(ctx, "hook registered",
		zap.String("stage", string(stage)),
		zap.Int("position", n-1),
	)
}

// RegisterModuleHooks registers every hook the module defines, checking
// stages in lifecycle order. Returns the number of hooks bound.
func (h *HookManager) RegisterModuleHooks(m Module) int {
	ctx := context.Background()
	bound := 0
	for _, stage := range stageOrder {
		hook := m.Hook(stage)
		if hook == nil {
			continue
		}
		h.add(ctx, stage, hook)
		bound++
	}
	h.logger.Debug(ctx, "module hooks registered",
		zap.String("module", m.Name),
		zap.Int("bound", bound),
	)
	return bound
}

// Execute calls every hook registered for stage in registration order,
// forwarding args unchanged.
//
// Unknown and empty stages are logged and reported in the Result; the
// returned error is only set when hooks fail, according to the configured
// FailurePolicy.
func (h *HookManager) Execute(ctx context.Context, stage Stage, args Args) (Result, error) {
	ctx = logging.WithExecutionID(ctx, uuid.NewString())
	ctx, span := h.tracer.Start(ctx, "hooks.Execute",
		trace.WithAttributes(attribute.String("hooks.stage", string(stage))),
	)
	defer span.End()

	result := Result{Stage: stage}

	if !stage.Valid() {
		h.reportInvalidStage(ctx, stage)
		stageExecutions.WithLabelValues(OutcomeInvalidStage.String()).Inc()
		span.SetAttributes(attribute.String("hooks.outcome", OutcomeInvalidStage.String()))
		result.Outcome = OutcomeInvalidStage
		return result, nil
	}

	handlers := h.Hooks(stage)
	if len(handlers) == 0 {
		h.logger.Warn(ctx, fmt.Sprintf("No hooks found for stage: %s", stage))
		stageExecutions.WithLabelValues(OutcomeEmptyStage.String()).Inc()
		span.SetAttributes(attribute.String("hooks.outcome", OutcomeEmptyStage.String()))
		result.Outcome = OutcomeEmptyStage
		return result, nil
	}

	result.Outcome = OutcomeExecuted
	stageExecutions.WithLabelValues(OutcomeExecuted.String()).Inc()
	span.SetAttributes(
		attribute.String("hooks.outcome", OutcomeExecuted.String()),
		attribute.Int("hooks.count", len(handlers)),
	)

	hookCtx := logging.WithLogger(ctx, h.logger)
	var errs []error
	for i, handler := range handlers {
		result.Called++
		h.logger.Trace(ctx, "invoking hook",
			zap.String("stage", string(stage)),
			zap.Int("index", i),
		)
		err := invoke(hookCtx, handler, args)
		if err == nil {
			hookInvocations.WithLabelValues(string(stage), "success").Inc()
			continue
		}

		hookInvocations.WithLabelValues(string(stage), "error").Inc()
		err = fmt.Errorf("hook %s[%d] failed: %w", stage, i, err)
		h.logger.Error(ctx, "hook failed",
			zap.String("stage", string(stage)),
			zap.Int("index", i),
			zap.Error(err),
		)
		if h.config.FailurePolicy != ContinueOnError {
			span.RecordError(err)
			span.SetStatus(codes.Error, "hook failed")
			return result, err
		}
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "hooks failed")
		return result, err
	}

	h.logger.Debug(ctx, "hooks executed",
		zap.String("stage", string(stage)),
		zap.Int("called", result.Called),
	)
	return result, nil
}

// invoke calls a hook, converting a panic into an error.
func invoke(ctx context.Context, hook Hook, args Args) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHookPanic, r)
		}
	}()
	return hook(ctx, args)
}

// reportInvalidStage emits the critical diagnostic for an unknown stage.
func (h *HookManager) reportInvalidStage(ctx context.Context, stage Stage) {
	h.logger.Critical(ctx, fmt.Sprintf("Unexpected Program Error: Invalid stage provided: %s", stage),
		zap.String("stage", string(stage)),
	)
}

// Stages returns the registry's stages in lifecycle order.
func (h *HookManager) Stages() []Stage {
	return Stages()
}

// Hooks returns a copy of the hooks registered for stage.
func (h *HookManager) Hooks(stage Stage) []Hook {
	h.mu.RLock()
	defer h.mu.RUnlock()
	src := h.handlers[stage]
	out := make([]Hook, len(src))
	copy(out, src)
	return out
}

// Count returns the number of hooks registered for stage.
func (h *HookManager) Count(stage Stage) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers[stage])
}

// Config returns the hook configuration
func (h *HookManager) Config() *Config {
	return h.config
}
