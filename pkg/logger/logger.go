package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jademcosta/courier/pkg/config"
)

const (
	ComponentKey         = "component"
	BufferKey            = "buffer"
	ObjStorageTypeKey    = "obj_storage_type"
	ExternalQueueTypeKey = "ext_queue_type"
)

func New(conf *config.Config) *slog.Logger {
	return NewWithWriter(conf.Log, os.Stderr)
}

func NewWithWriter(logConf config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(logConf.Level)}

	var handler slog.Handler
	if strings.EqualFold(logConf.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

// NewDummy returns a logger that discards everything. Meant for tests.
func NewDummy() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(level string) slog.Level {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(level))
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}
