// Package logging provides the process-wide structured logger.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu         sync.Mutex
	logger     *zap.SugaredLogger
	syncLogger = func() error { return nil }
)

// Options selects level and encoding for Configure.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // console or json
}

// Configure builds the process-wide logger. Later calls replace it.
func Configure(opts Options) error {
	base, err := build(opts)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	logger = base.Sugar()
	syncLogger = base.Sync
	return nil
}

// Logger returns the configured logger, lazily building an info-level console
// logger when Configure has not been called.
func Logger() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		base, err := build(Options{Level: "info", Format: "console"})
		if err != nil {
			panic(err)
		}
		logger = base.Sugar()
		syncLogger = base.Sync
	}
	return logger
}

// Sync flushes any buffered log entries.
func Sync() error {
	mu.Lock()
	fn := syncLogger
	mu.Unlock()

	if err := fn(); err != nil {
		// stderr is not syncable on some platforms
		if strings.Contains(err.Error(), "bad file descriptor") ||
			strings.Contains(err.Error(), "invalid argument") ||
			strings.Contains(err.Error(), "inappropriate ioctl") {
			return nil
		}
		return err
	}
	return nil
}

func build(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	var cfg zap.Config
	switch strings.ToLower(opts.Format) {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console", "":
		cfg = zap.NewDevelopmentConfig()
		cfg.Development = false
		cfg.DisableStacktrace = true
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
