// Package logging provides structured logging with OpenTelemetry integration.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Critical level for locally handled program errors
//   - Dual output (stderr console + OpenTelemetry)
//   - Automatic context field injection (trace_id, execution.id)
//
// # Usage
//
// Create logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, otelProvider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx = logging.WithExecutionID(ctx, uuid.NewString())
//	logger.Warn(ctx, "No hooks found for stage: post_runtime")
//
// # Testing
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Critical(ctx, "Unexpected Program Error: Invalid stage provided: bogus")
//	tl.AssertLogged(t, logging.CriticalLevel, "Invalid stage provided")
//
// # Concurrency Safety
//
// Logger is safe for concurrent use. Child loggers (With, Named) are
// independent and do not affect parent or siblings.
package logging
