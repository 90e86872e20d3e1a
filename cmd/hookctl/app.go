package main

import (
	"context"
	"fmt"

	otellog "go.opentelemetry.io/otel/log"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/programhooks/internal/config"
	"github.com/fyrsmithlabs/programhooks/internal/hooks"
	"github.com/fyrsmithlabs/programhooks/internal/logging"
	"github.com/fyrsmithlabs/programhooks/internal/luaplugin"
	"github.com/fyrsmithlabs/programhooks/internal/telemetry"
)

// app holds the components every command shares.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	importer  *luaplugin.Importer
	manager   *hooks.HookManager
}

// newApp loads configuration and wires tracing, logging, the Lua importer
// and the hook registry. The returned context carries the logger.
func newApp(ctx context.Context) (context.Context, *app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return ctx, nil, fmt.Errorf("loading config: %w", err)
	}
	if pluginsDir != "" {
		cfg.Plugins.Dir = pluginsDir
	}

	tel, err := telemetry.New(ctx, telemetryConfig(cfg))
	if err != nil {
		return ctx, nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	logger, err := newLogger(cfg, tel.LoggerProvider())
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return ctx, nil, fmt.Errorf("initializing logger: %w", err)
	}
	ctx = logging.WithLogger(ctx, logger)
	if err := tel.Err(); err != nil {
		logger.Warn(ctx, "telemetry degraded, continuing without export", zap.Error(err))
	}

	importer := luaplugin.NewImporter(
		luaplugin.WithPattern(cfg.Plugins.Pattern),
		luaplugin.WithLogger(logger),
	)

	manager := hooks.NewHookManager(
		&hooks.Config{FailurePolicy: hooks.FailurePolicy(cfg.Hooks.FailurePolicy)},
		hooks.WithLogger(logger),
		hooks.WithTracer(tel.Tracer("github.com/fyrsmithlabs/programhooks/internal/hooks")),
		hooks.WithImporter(importer),
	)

	return ctx, &app{
		cfg:       cfg,
		logger:    logger,
		telemetry: tel,
		importer:  importer,
		manager:   manager,
	}, nil
}

// newLogger builds the logger from config. Records are also sent to lp
// when logging.otel is set and a provider is available.
func newLogger(cfg *config.Config, lp otellog.LoggerProvider) (*logging.Logger, error) {
	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logCfg := logging.NewDefaultConfig()
	logCfg.Level = level
	logCfg.Format = cfg.Logging.Format
	if cfg.Logging.OTEL && lp != nil {
		logCfg.Output.OTEL = true
		return logging.NewLogger(logCfg, lp)
	}
	return logging.NewLogger(logCfg, nil)
}

func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.NewDefaultConfig()
	tc.Enabled = cfg.Telemetry.Enabled
	tc.Endpoint = cfg.Telemetry.Endpoint
	tc.Protocol = cfg.Telemetry.Protocol
	tc.ServiceName = cfg.Telemetry.ServiceName
	tc.ServiceVersion = version
	tc.Insecure = cfg.Telemetry.Insecure
	tc.Logs = cfg.Logging.OTEL
	tc.Shutdown.Timeout = cfg.Telemetry.ShutdownTimeout
	return tc
}

// close releases Lua states, flushes spans and syncs the logger.
func (a *app) close(ctx context.Context) {
	a.importer.Close()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn(ctx, "telemetry shutdown failed")
	}
	_ = a.logger.Sync()
}
