// Package logger provides the process-wide zap logger.
package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	sugar *zap.SugaredLogger
	level = zap.NewAtomicLevel()
	once  sync.Once
)

// Init builds the global logger once. "production" logs JSON at info,
// "test" discards everything, anything else gets the console encoder at
// debug. SetLevel can adjust the threshold afterwards.
func Init(env string) {
	once.Do(func() {
		var (
			base *zap.Logger
			err  error
		)

		switch env {
		case "production":
			level.SetLevel(zapcore.InfoLevel)
			cfg := zap.NewProductionConfig()
			cfg.Level = level
			base, err = cfg.Build()
		case "test":
			base = zap.NewNop()
		default:
			level.SetLevel(zapcore.DebugLevel)
			cfg := zap.NewDevelopmentConfig()
			cfg.Level = level
			base, err = cfg.Build()
		}
		if err != nil {
			base = zap.NewNop()
		}

		sugar = base.Sugar()
	})
}

// Get returns the global logger, initialising a development one on first use.
func Get() *zap.SugaredLogger {
	if sugar == nil {
		Init("development")
	}
	return sugar
}

// SetLevel changes the minimum level of the global logger. An empty name
// leaves it untouched.
func SetLevel(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	parsed, err := zapcore.ParseLevel(strings.ToLower(name))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	level.SetLevel(parsed)
	return nil
}

// ForRequest returns the global logger tagged with request_id.
func ForRequest(requestID string) *zap.SugaredLogger {
	if requestID == "" {
		return Get()
	}
	return Get().With("request_id", requestID)
}

// Sync flushes buffered entries. Call before exit.
func Sync() {
	if sugar != nil {
		_ = sugar.Sync()
	}
}
