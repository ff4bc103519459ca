// Package logger holds the process wide zap logger
package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logMu sync.RWMutex
	log   *zap.Logger
	sugar *zap.SugaredLogger
)

// Config defines the logger settings
type Config struct {
	// Level is the minimum level logged, eg: debug, info, warn, error
	Level string
	// Development switches to the human friendly console encoder
	Development bool
}

// Init builds a logger from the given config and installs it as the process
// logger
func Init(cfg Config) error {

	zcfg := zap.NewProductionConfig()

	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}

	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Level)

		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}

		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := zcfg.Build()

	if err != nil {
		return fmt.Errorf("error building logger: %w", err)
	}

	Set(l)
	return nil
}

// InitProduction installs a JSON production logger
func InitProduction() error {
	return Init(Config{})
}

// InitDevelopment installs a console development logger
func InitDevelopment() error {
	return Init(Config{Development: true})
}

// Set replaces the process logger and the zap globals
func Set(l *zap.Logger) {
	logMu.Lock()
	defer logMu.Unlock()

	zap.ReplaceGlobals(l)

	if log != nil {
		_ = log.Sync()
	}

	log = l
	sugar = l.Sugar()
}

// Log returns the process logger, never nil
func Log() *zap.Logger {
	logMu.RLock()
	defer logMu.RUnlock()

	if log != nil {
		return log
	}

	return zap.L()
}

// S returns the sugared process logger, never nil
func S() *zap.SugaredLogger {
	logMu.RLock()
	defer logMu.RUnlock()

	if sugar != nil {
		return sugar
	}

	return zap.S()
}

// Sync flushes buffered log entries
func Sync() {
	logMu.RLock()
	defer logMu.RUnlock()

	if log != nil {
		_ = log.Sync()
	}
}
