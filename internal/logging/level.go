package logging

import (
	"fmt"
	"log/slog"
	"strings"
)

// Levels from least to most severe. Audit entries are always the last to be
// filtered out.
const (
	LevelSilly = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelFatal = slog.Level(12)
	LevelAudit = slog.Level(16)
)

var levelNames = map[slog.Level]string{
	LevelSilly: "silly",
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelFatal: "fatal",
	LevelAudit: "audit",
}

func ParseLevel(s string) (slog.Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))

	for level, n := range levelNames {
		if n == name {
			return level, nil
		}
	}

	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func LevelName(level slog.Level) string {
	if name, ok := levelNames[level]; ok {
		return name
	}

	return strings.ToLower(level.String())
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(LevelName(level))
		}
	}

	return a
}
