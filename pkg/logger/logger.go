package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/trackforge/previewd/pkg/config"
)

const (
	ComponentKey      = "component"
	ObjStorageTypeKey = "obj_storage_type"
	NotifierTypeKey   = "notifier_type"
	RequestIDKey      = "request_id"
	StageKey          = "stage"
)

func New(conf config.LogConfig) *slog.Logger {
	level := parseLevel(conf.Level)

	var handler slog.Handler
	if conf.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// NewDummy returns a logger that discards everything. Meant for tests.
func NewDummy() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
