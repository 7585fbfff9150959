package logging

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel aliases zapcore.Level so callers need not import zapcore.
type LogLevel = zapcore.Level

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
)

// ParseLogLevel parses a level name case-insensitively, returning
// defaultLevel for empty or unknown input.
func ParseLogLevel(levelStr string, defaultLevel zapcore.Level) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return defaultLevel
	}
}

// Operation tags an entry with the studio operation (summon, revive, analyze).
func Operation(name string) zap.Field {
	return zap.String("operation", name)
}

// StructureID tags an entry with a structure identifier.
func StructureID(id string) zap.Field {
	return zap.String("structure_id", id)
}

// SessionID tags an entry with a shortened browser session id; the full
// value acts as a cookie credential and stays out of logs.
func SessionID(id string) zap.Field {
	if len(id) > 8 {
		id = id[:8]
	}
	return zap.String("session", id)
}

// Provider tags an entry with a provider backend and model.
func Provider(name, model string) zap.Field {
	return zap.Dict("provider",
		zap.String("name", name),
		zap.String("model", model),
	)
}

// Elapsed reports the time since start.
func Elapsed(start time.Time) zap.Field {
	return zap.Duration("elapsed", time.Since(start))
}
