package logging

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output.OTEL = false

	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, logger)

	assert.NotNil(t, logger.zap)
	assert.Equal(t, cfg, logger.config)
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"

	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLogger_ContextAwareMethods(t *testing.T) {
	core, observed := observer.New(TraceLevel)
	logger := &Logger{
		zap:    zap.New(core),
		config: NewDefaultConfig(),
	}

	ctx := context.Background()

	tests := []struct {
		name    string
		logFunc func()
		level   zapcore.Level
		message string
	}{
		{
			name:    "trace",
			logFunc: func() { logger.Trace(ctx, "trace message", zap.String("key", "val")) },
			level:   TraceLevel,
			message: "trace message",
		},
		{
			name:    "debug",
			logFunc: func() { logger.Debug(ctx, "debug message", zap.String("key", "val")) },
			level:   zapcore.DebugLevel,
			message: "debug message",
		},
		{
			name:    "info",
			logFunc: func() { logger.Info(ctx, "info message", zap.String("key", "val")) },
			level:   zapcore.InfoLevel,
			message: "info message",
		},
		{
			name:    "warn",
			logFunc: func() { logger.Warn(ctx, "warn message", zap.String("key", "val")) },
			level:   zapcore.WarnLevel,
			message: "warn message",
		},
		{
			name:    "error",
			logFunc: func() { logger.Error(ctx, "error message", zap.String("key", "val")) },
			level:   zapcore.ErrorLevel,
			message: "error message",
		},
		{
			name:    "critical",
			logFunc: func() { logger.Critical(ctx, "critical message", zap.String("key", "val")) },
			level:   CriticalLevel,
			message: "critical message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observed.TakeAll() // Clear previous logs
			tt.logFunc()

			logs := observed.All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.level, logs[0].Level)
			assert.Equal(t, tt.message, logs[0].Message)
			assert.Len(t, logs[0].Context, 1) // "key" field
		})
	}
}

func TestLogger_CriticalDoesNotPanic(t *testing.T) {
	cfg := NewDefaultConfig()
	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		logger.Critical(context.Background(), "still running")
	})
}

func TestLogger_Named(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := &Logger{
		zap:    zap.New(core),
		config: NewDefaultConfig(),
	}

	named := logger.Named("HookManager")
	named.Info(context.Background(), "named log")

	logs := observed.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "HookManager", logs[0].LoggerName)
}

func TestLogger_With(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := &Logger{
		zap:    zap.New(core),
		config: NewDefaultConfig(),
	}

	child := logger.With(zap.String("child_field", "value"))
	child.Info(context.Background(), "child log")

	logs := observed.All()
	require.Len(t, logs, 1)
	assertFieldExists(t, logs[0].Context, "child_field", "value")
}

func TestLogger_Enabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	logger := &Logger{
		zap:    zap.New(core),
		config: NewDefaultConfig(),
	}

	assert.False(t, logger.Enabled(TraceLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Enabled(CriticalLevel))
}

func TestLogger_AutoInjectExecutionID(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := &Logger{zap: zap.New(core), config: NewDefaultConfig()}

	ctx := WithExecutionID(context.Background(), "exec_123")
	logger.Info(ctx, "test message")

	logs := observed.All()
	require.Len(t, logs, 1)
	assertFieldExists(t, logs[0].Context, "execution.id", "exec_123")
}

func TestWithExecutionID_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { WithExecutionID(context.Background(), "") })
	assert.Panics(t, func() { WithExecutionID(context.Background(), "bad id!") })
}

func TestFromContext(t *testing.T) {
	t.Run("missing returns nop logger", func(t *testing.T) {
		l := FromContext(context.Background())
		require.NotNil(t, l)
		assert.False(t, l.Enabled(zapcore.ErrorLevel))
	})

	t.Run("stored logger returned", func(t *testing.T) {
		tl := NewTestLogger()
		ctx := WithLogger(context.Background(), tl.Logger)
		assert.Same(t, tl.Logger, FromContext(ctx))
	})
}

func TestNewDualCore(t *testing.T) {
	t.Run("console only", func(t *testing.T) {
		cfg := NewDefaultConfig()
		core, err := newDualCore(cfg, nil)
		require.NoError(t, err)
		assert.NotNil(t, core)
	})

	t.Run("otel without provider falls back to console", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Output.OTEL = true
		core, err := newDualCore(cfg, nil)
		require.NoError(t, err)
		assert.NotNil(t, core)
	})

	t.Run("otel only", func(t *testing.T) {
		exp := &memoryLogExporter{}
		lp := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp)))
		defer func() { _ = lp.Shutdown(context.Background()) }()

		cfg := NewDefaultConfig()
		cfg.Output.Console = false
		cfg.Output.OTEL = true
		logger, err := NewLogger(cfg, lp)
		require.NoError(t, err)

		logger.Info(context.Background(), "stage executed")
		assert.Equal(t, []string{"stage executed"}, exp.Bodies())
	})

	t.Run("no outputs", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Output.Console = false
		_, err := newDualCore(cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one output")
	})
}

// memoryLogExporter keeps the bodies of exported log records.
type memoryLogExporter struct {
	mu     sync.Mutex
	bodies []string
}

func (e *memoryLogExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.bodies = append(e.bodies, r.Body().AsString())
	}
	return nil
}

func (e *memoryLogExporter) Shutdown(context.Context) error   { return nil }
func (e *memoryLogExporter) ForceFlush(context.Context) error { return nil }

func (e *memoryLogExporter) Bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.bodies...)
}

func assertFieldExists(t *testing.T, fields []zapcore.Field, key, value string) {
	t.Helper()
	for _, f := range fields {
		if f.Key == key && f.String == value {
			return
		}
	}
	t.Errorf("field %q=%q not found in %v", key, value, fields)
}
