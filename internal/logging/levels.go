package logging

import (
	"go.uber.org/zap/zapcore"
)

// LevelFromString parses a level name, defaulting to info on failure.
// Configuration is validated upstream, so a parse failure here means a
// programmer error, not bad user input.
func LevelFromString(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// effectiveLevel combines a sink's own threshold with the global
// floor: the stricter of the two wins.
func effectiveLevel(sinkLevel, globalLevel string) zapcore.Level {
	s := LevelFromString(sinkLevel)
	g := LevelFromString(globalLevel)
	if g > s {
		return g
	}
	return s
}
