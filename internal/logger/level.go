// Package logger provides logging utilities for the application.
package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// levelCache is a lock-free concurrent cache: logger name -> resolved level.
var levelCache sync.Map

// levelConfig holds the hierarchical level configuration.
var (
	levelConfigMu  sync.RWMutex
	levelConfigMap map[string]string
	globalLevel    zapcore.Level
)

// InitLevelConfig installs the hierarchical level overrides. Called from
// InitLogger with the levels map decoded from configuration.
func InitLevelConfig(levels map[string]string, defaultLevel zapcore.Level) {
	levelConfigMu.Lock()
	defer levelConfigMu.Unlock()
	levelConfigMap = levels
	globalLevel = defaultLevel
	levelCache = sync.Map{}
}

// GetLevelForName resolves the most specific configured level for a dotted
// logger name, computing it once and caching the result.
func GetLevelForName(name string) zapcore.Level {
	if cached, ok := levelCache.Load(name); ok {
		return cached.(zapcore.Level)
	}

	level := computeLevelForName(name)
	levelCache.Store(name, level)

	return level
}

func computeLevelForName(name string) zapcore.Level {
	levelConfigMu.RLock()
	defer levelConfigMu.RUnlock()

	if len(levelConfigMap) == 0 {
		return globalLevel
	}

	if name == "" {
		return globalLevel
	}

	if levelStr, ok := levelConfigMap[name]; ok {
		if level, err := ParseLevel(levelStr); err == nil {
			return level
		}
	}

	// Walk up the dotted hierarchy: "catalog.migrate.verify" falls back to
	// "catalog.migrate", then "catalog", before hitting the global default.
	parts := strings.Split(name, ".")
	for i := len(parts) - 1; i > 0; i-- {
		prefix := strings.Join(parts[:i], ".")
		if levelStr, ok := levelConfigMap[prefix]; ok {
			if level, err := ParseLevel(levelStr); err == nil {
				return level
			}
		}
	}

	return globalLevel
}

// ParseLevel parses a level string case-insensitively: debug, info (also
// the empty string), warn or warning, error, dpanic, panic, fatal.
func ParseLevel(levelStr string) (zapcore.Level, error) {
	var level zapcore.Level
	normalized := strings.ToLower(levelStr)
	if normalized == "warning" {
		normalized = "warn"
	}
	err := level.UnmarshalText([]byte(normalized))
	return level, err
}
