package logging

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/xerrors"
)

// LevelFromEnv reads the minimum level from GO_LOG, defaulting to info.
func LevelFromEnv() (slog.Level, error) {
	level := slog.LevelInfo
	if v, ok := os.LookupEnv("GO_LOG"); ok {
		if err := level.UnmarshalText([]byte(v)); err != nil {
			return level, xerrors.Errorf("failed to parse log level: %w", err)
		}
	}
	return level, nil
}

// New returns a JSON logger whose keys follow the OpenTelemetry log data
// model, or a plain text logger when debug is set.
func New(w io.Writer, level slog.Level, debug bool) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{
		Level: level,
		// https://opentelemetry.io/docs/specs/otel/logs/data-model/
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.LevelKey:
				a.Key = "severitytext"
			case slog.MessageKey:
				a.Key = "body"
			}
			return a
		},
	}
	if debug {
		return slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	return slog.New(slog.NewJSONHandler(w, handlerOpts))
}
