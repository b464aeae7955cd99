// Package observability sets up the process-wide structured logger.
package observability

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig controls logger construction.
type LoggerConfig struct {
	// Level is one of debug, info, warn, error. Default info.
	Level string
	// Format is "json" (default, machine-parseable) or "console".
	Format string
	// ServiceName names the root logger; components derive from it via
	// logger.Named(...).
	ServiceName string
}

// NewLogger builds a zap logger writing to stdout. Invalid levels fall
// back to info rather than failing: a misconfigured log level should not
// stop the swarm.
func NewLogger(cfg LoggerConfig) *zap.Logger {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)
	logger := zap.New(core, zap.AddStacktrace(zap.ErrorLevel))
	if cfg.ServiceName != "" {
		logger = logger.Named(cfg.ServiceName)
	}
	return logger
}

// Sync flushes buffered entries, swallowing the spurious errors stdout
// syncing produces on some platforms.
func Sync(logger *zap.Logger) {
	_ = logger.Sync()
}
