package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger set by Init
var Log *zap.Logger

// TraceIDKey is the context key for trace ID
type TraceIDKey struct{}

// Init initializes the global logger with the specified level and format
func Init(level, format string) {
	var err error
	Log, err = New(level, format)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
}

// New builds a logger without touching the global one.
// format "json" selects the production encoder, anything else the console encoder.
func New(level, format string) (*zap.Logger, error) {
	var config zap.Config

	if format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	}

	config.Level = zap.NewAtomicLevelAt(ParseLevel(level))

	return config.Build()
}

// ParseLevel maps a config level name to a zap level, defaulting to info
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// Sync flushes any buffered log entries
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}

// L returns the global logger, or a no-op logger before Init
func L() *zap.Logger {
	if Log == nil {
		return zap.NewNop()
	}
	return Log
}

// ContextWithTraceID adds trace ID to context
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey{}, traceID)
}

// TraceIDFromContext retrieves trace ID from context
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(TraceIDKey{}).(string); ok {
		return traceID
	}
	return ""
}

// Convenience methods for global logger
func Info(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Info(msg, fields...)
	}
}

func Error(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Error(msg, fields...)
	}
}

// Named creates a named logger
func Named(name string) *zap.Logger {
	return L().Named(name)
}
