// Package logger provides logging utilities for the application.
package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNamedLogger_UsesCorrectLevel(t *testing.T) {
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	core := zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.DebugLevel)
	testLogger := zap.New(core)

	originalLogger := logger
	logger = testLogger
	defer func() { logger = originalLogger }()

	InitLevelConfig(map[string]string{
		"catalog.db": "debug",
		"scheduler":  "warn",
	}, zapcore.InfoLevel)

	dbLogger := Named("catalog.db")
	assert.NotNil(t, dbLogger)

	schedulerLogger := Named("scheduler")
	assert.NotNil(t, schedulerLogger)

	// Unconfigured name falls back to the global level.
	syncLogger := Named("sync")
	assert.NotNil(t, syncLogger)
}

func TestNamedLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	core := zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.DebugLevel)
	testLogger := zap.New(core)

	originalLogger := logger
	logger = testLogger
	defer func() { logger = originalLogger }()

	InitLevelConfig(map[string]string{
		"catalog.db": "warn",
	}, zapcore.InfoLevel)

	dbLogger := Named("catalog.db")
	require.NotNil(t, dbLogger)

	buf.Reset()

	dbLogger.Debug("debug message - should be filtered")
	dbLogger.Info("info message - should be filtered")
	dbLogger.Warn("warn message - should be logged")
	dbLogger.Error("error message - should be logged")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func TestNamedLogger_GlobalLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	core := zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.DebugLevel)
	testLogger := zap.New(core)

	originalLogger := logger
	logger = testLogger
	defer func() { logger = originalLogger }()

	InitLevelConfig(map[string]string{}, zapcore.ErrorLevel)

	syncLogger := Named("sync.worker")
	require.NotNil(t, syncLogger)

	buf.Reset()

	syncLogger.Debug("debug message - should be filtered")
	syncLogger.Info("info message - should be filtered")
	syncLogger.Warn("warn message - should be filtered")
	syncLogger.Error("error message - should be logged")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.NotContains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func TestNamedLogger_ParentLevelInheritance(t *testing.T) {
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	core := zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.DebugLevel)
	testLogger := zap.New(core)

	originalLogger := logger
	logger = testLogger
	defer func() { logger = originalLogger }()

	InitLevelConfig(map[string]string{
		"catalog": "debug",
	}, zapcore.ErrorLevel)

	// catalog.db inherits catalog's debug level.
	dbLogger := Named("catalog.db")
	require.NotNil(t, dbLogger)

	buf.Reset()

	dbLogger.Debug("debug message - should be logged")
	dbLogger.Info("info message - should be logged")
	dbLogger.Warn("warn message - should be logged")
	dbLogger.Error("error message - should be logged")

	output := buf.String()
	assert.Contains(t, output, "debug message")
	assert.Contains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func TestInitLogger_DevelopmentEnvironment(t *testing.T) {
	originalLogger := logger
	defer func() { logger = originalLogger }()

	InitLogger(EnvironmentDevelopment, LogLevelDebug, map[string]string{
		"catalog.db": "warn",
	})

	assert.NotNil(t, logger)

	dbLogger := Named("catalog.db")
	assert.NotNil(t, dbLogger)
}

func TestInitLogger_ProductionEnvironment(t *testing.T) {
	originalLogger := logger
	defer func() { logger = originalLogger }()

	InitLogger(EnvironmentProduction, LogLevelInfo, map[string]string{})

	assert.NotNil(t, logger)
}

func TestInitLogger_WithLevelsConfig(t *testing.T) {
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	originalLogger := logger
	defer func() { logger = originalLogger }()

	InitLogger(EnvironmentProduction, LogLevelError, map[string]string{
		"catalog.db": "debug",
	})

	// Swap in a buffer-backed core so output can be asserted on.
	core := zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.DebugLevel)
	logger = zap.New(core)

	InitLevelConfig(map[string]string{
		"catalog.db": "debug",
	}, zapcore.ErrorLevel)

	dbLogger := Named("catalog.db")
	syncLogger := Named("sync")

	buf.Reset()

	dbLogger.Debug("db debug - should be logged")

	syncLogger.Debug("sync debug - should be filtered")
	syncLogger.Error("sync error - should be logged")

	output := buf.String()
	assert.Contains(t, output, "db debug")
	assert.NotContains(t, output, "sync debug")
	assert.Contains(t, output, "sync error")
}

func TestInitLogger_LogLevelMapping(t *testing.T) {
	tests := []struct {
		logLevel    LogLevel
		expectedZap zapcore.Level
	}{
		{LogLevelDebug, zapcore.DebugLevel},
		{LogLevelInfo, zapcore.InfoLevel},
		{LogLevelWarn, zapcore.WarnLevel},
		{LogLevelError, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.logLevel), func(t *testing.T) {
			result := getZapLevel(string(tt.logLevel))
			assert.Equal(t, tt.expectedZap, result)
		})
	}
}

func TestInitLogger_DefaultLogLevel(t *testing.T) {
	result := getZapLevel("unknown")
	assert.Equal(t, zapcore.InfoLevel, result)

	result = getZapLevel("")
	assert.Equal(t, zapcore.InfoLevel, result)
}

func TestInitLogger_NilLevelsMap(t *testing.T) {
	originalLogger := logger
	defer func() { logger = originalLogger }()

	assert.NotPanics(t, func() {
		InitLogger(EnvironmentProduction, LogLevelInfo, nil)
	})

	assert.NotNil(t, logger)
}

func TestNamedLogger_DifferentModulesIndependent(t *testing.T) {
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	core := zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.DebugLevel)
	testLogger := zap.New(core)

	originalLogger := logger
	logger = testLogger
	defer func() { logger = originalLogger }()

	InitLevelConfig(map[string]string{
		"catalog.db": "debug",
		"scheduler":  "error",
	}, zapcore.InfoLevel)

	dbLogger := Named("catalog.db")
	schedulerLogger := Named("scheduler")

	buf.Reset()

	dbLogger.Debug("db debug - should be logged")
	schedulerLogger.Debug("scheduler debug - should be filtered")
	schedulerLogger.Error("scheduler error - should be logged")

	output := buf.String()
	assert.Contains(t, output, "db debug")
	assert.NotContains(t, output, "scheduler debug")
	assert.Contains(t, output, "scheduler error")
}
