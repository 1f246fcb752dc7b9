package logging

import (
	"regexp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// baseEncoderConfig names record keys per the persisted line format:
// timestamp, level, logger, message. Module, function, and line are
// contributed per entry by callerFieldsCore.
func baseEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.LevelKey = "level"
	cfg.NameKey = "logger"
	cfg.MessageKey = "message"
	cfg.CallerKey = ""
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return cfg
}

// newJSONEncoder serializes one JSON object per line for file sinks.
func newJSONEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(baseEncoderConfig())
}

// newConsoleEncoder renders the human-readable line format, optionally
// ANSI-colored. Colored output is console-only: file sinks always use
// newJSONEncoder, so escape sequences never reach a structured field.
func newConsoleEncoder(color bool) zapcore.Encoder {
	cfg := baseEncoderConfig()
	if color {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return zapcore.NewConsoleEncoder(cfg)
}

// ansiPattern matches ANSI SGR escape sequences.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// stripANSI removes color escape sequences so tests can assert on the
// content of colored console lines.
func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}
