// Package logger provides the process-wide structured logger used by every
// component of the engine.
package logger

import (
	"log"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger is the global instance, lazily initialized with a default info-level
// logger so packages can log before InitLogger runs (e.g. during config load).
var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

func initDefaultLogger() {
	loggerOnce.Do(func() {
		if logger == nil {
			cfg := zap.NewProductionConfig()
			cfg.Level.SetLevel(zapcore.InfoLevel)
			var err error
			logger, err = cfg.Build()
			if err != nil {
				logger = zap.NewNop()
			}
		}
	})
}

// Get returns the logger instance. If InitLogger hasn't been called, returns
// a default info-level logger.
func Get() *zap.Logger {
	initDefaultLogger()
	return logger
}

// Named returns a named logger with level filtering applied from the
// hierarchical configuration (see InitLevelConfig).
func Named(name string) *zap.Logger {
	base := Get().Named(name)
	level := GetLevelForName(name)

	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &levelFilterCore{
			Core:  core,
			level: level,
		}
	}))
}

// Environment selects the zap preset (console vs JSON encoding).
type Environment string

const (
	EnvironmentDevelopment Environment = "development"
	EnvironmentProduction  Environment = "production"
)

// LogLevel is the configured string form of a zap level.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// InitLogger initializes the global logger and the hierarchical level
// overrides (e.g. "catalog.migrate" -> "debug" while the rest of the process
// stays at "info").
func InitLogger(environment Environment, logLevel LogLevel, levels map[string]string) {
	var cfg zap.Config
	if environment == EnvironmentDevelopment {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	zapLevel := getZapLevel(string(logLevel))
	cfg.Level.SetLevel(zapLevel)

	var err error
	logger, err = cfg.Build()
	if err != nil {
		log.Printf("failed to initialize zap logger: %v", err)
		os.Exit(1)
	}

	InitLevelConfig(levels, zapLevel)
	zap.RedirectStdLog(logger)
}

func getZapLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
