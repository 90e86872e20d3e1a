// Package telemetry provides OpenTelemetry tracing and log export for programhooks.
//
// # Usage
//
//	cfg := telemetry.NewDefaultConfig()
//	tel, err := telemetry.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(ctx)
//
//	manager := hooks.NewHookManager(nil, hooks.WithTracer(tel.Tracer("programhooks.hooks")))
//
// Every Execute call becomes a "hooks.Execute" span and every directory scan
// a "hooks.LoadPlugins" span.
//
// # Configuration
//
// Telemetry is disabled by default. When disabled, Tracer returns the global
// (no-op) tracer and nothing is exported.
//
// With Logs set, log records are batched to the same endpoint over OTLP
// gRPC. Pass LoggerProvider to logging.NewLogger to feed the zap bridge.
//
// # Testing
//
// NewTestTelemetry records spans in memory:
//
//	tt := telemetry.NewTestTelemetry()
//	// ... run code using tt.Tracer("test")
//	tt.AssertSpanExists(t, "hooks.Execute")
package telemetry
