// internal/logging/levels.go
package logging

import (
	"go.uber.org/zap/zapcore"
)

// TraceLevel is a custom level below Debug for ultra-verbose logging.
// Value: -2 (Debug is -1, Info is 0)
const TraceLevel = zapcore.Level(-2)

// CriticalLevel marks unrecoverable program errors that are still handled
// locally, such as an unknown lifecycle stage.
//
// It occupies zap's DPanic slot. Loggers built here never enable zap's
// development mode, so logging at this level does not panic.
const CriticalLevel = zapcore.DPanicLevel

// LevelFromString parses a string into a zapcore.Level, supporting "trace"
// and "critical".
func LevelFromString(level string) (zapcore.Level, error) {
	switch level {
	case "trace":
		return TraceLevel, nil
	case "critical":
		return CriticalLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

// LevelName returns the name used in encoded output for a level.
func LevelName(l zapcore.Level) string {
	switch l {
	case TraceLevel:
		return "trace"
	case CriticalLevel:
		return "critical"
	default:
		return l.String()
	}
}

// encodeLevel writes level names with trace and critical spelled out.
func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(LevelName(l))
}
