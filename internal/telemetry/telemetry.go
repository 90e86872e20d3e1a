package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Telemetry owns the tracer and logger providers and their shutdown.
//
// Exporter failures do not crash the application; the instance degrades to
// the global no-op tracer and drops OTEL log output.
type Telemetry struct {
	config         *Config
	tracerProvider *trace.TracerProvider
	loggerProvider *sdklog.LoggerProvider

	degraded atomic.Bool
	lastErr  atomic.Value // error
}

// Option configures Telemetry creation.
type Option func(*options)

type options struct {
	exporter    trace.SpanExporter
	logExporter sdklog.Exporter
}

// WithTraceExporter overrides the default OTLP exporter.
func WithTraceExporter(exp trace.SpanExporter) Option {
	return func(o *options) {
		o.exporter = exp
	}
}

// WithLogExporter overrides the default OTLP log exporter.
func WithLogExporter(exp sdklog.Exporter) Option {
	return func(o *options) {
		o.logExporter = exp
	}
}

// New creates a Telemetry instance. If telemetry is disabled in config,
// returns an instance that hands out the global tracer and no logger provider.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	t := &Telemetry{config: cfg}
	if !cfg.Enabled {
		return t, nil
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	res := newResource(cfg)

	if cfg.Logs {
		logExporter := o.logExporter
		if logExporter == nil {
			exp, err := newLogExporter(ctx, cfg)
			if err != nil {
				t.setDegraded(err)
			}
			logExporter = exp
		}
		if logExporter != nil {
			t.loggerProvider = newLoggerProvider(res, logExporter)
			global.SetLoggerProvider(t.loggerProvider)
		}
	}

	exporter := o.exporter
	if exporter == nil {
		exp, err := newExporter(ctx, cfg)
		if err != nil {
			t.setDegraded(err)
			return t, nil
		}
		exporter = exp
	}

	t.tracerProvider = newTracerProvider(cfg, res, exporter)
	otel.SetTracerProvider(t.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return t, nil
}

// Tracer returns a tracer for the given instrumentation scope.
//
// Returns the global tracer if telemetry is disabled or degraded.
func (t *Telemetry) Tracer(name string, opts ...oteltrace.TracerOption) oteltrace.Tracer {
	if t == nil || t.tracerProvider == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return t.tracerProvider.Tracer(name, opts...)
}

// LoggerProvider returns the log provider for the OTEL logging bridge.
//
// Returns nil when log export is not configured.
func (t *Telemetry) LoggerProvider() log.LoggerProvider {
	if t == nil || t.loggerProvider == nil {
		return nil
	}
	return t.loggerProvider
}

// Shutdown flushes and stops the tracer and logger providers.
// Uses the shutdown timeout from config when ctx has no deadline.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok && t.config != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Shutdown.Timeout.Duration())
		defer cancel()
	}

	var errs []error
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace provider shutdown: %w", err))
		}
	}
	if t.loggerProvider != nil {
		if err := t.loggerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("logger provider shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

// IsEnabled returns true if telemetry is enabled and exporting.
func (t *Telemetry) IsEnabled() bool {
	return t != nil && t.tracerProvider != nil && !t.degraded.Load()
}

// Err returns the error that degraded telemetry, or nil.
func (t *Telemetry) Err() error {
	if t == nil {
		return nil
	}
	if err, ok := t.lastErr.Load().(error); ok {
		return err
	}
	return nil
}

// setDegraded marks telemetry as degraded due to an error.
func (t *Telemetry) setDegraded(err error) {
	t.degraded.Store(true)
	t.lastErr.Store(err)
}
