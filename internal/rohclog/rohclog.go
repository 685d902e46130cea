// Package rohclog implements the default trace callback sink: a slog
// logger, optionally rotated to disk via lumberjack. The engines do not
// install this sink themselves — callers wire one of its constructors into
// rohc.TraceFunc, and a caller supplying its own callback bypasses the
// sink entirely, since trace callbacks are optional. The comp and decomp
// packages import rohclog only for the PacketDumper type in their Options.
package rohclog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/otus-rohc/rohc/internal/config"
	"github.com/otus-rohc/rohc/pkg/rohc"
)

// New builds a rohc.TraceFunc backed by a slog.Logger configured per cfg.
func New(cfg config.LogConfig) (rohc.TraceFunc, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	writers := []io.Writer{os.Stdout}
	if cfg.File.Enabled {
		if cfg.File.Path == "" {
			return nil, fmt.Errorf("log.file.enabled requires log.file.path")
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		})
	}
	multi := io.MultiWriter(writers...)

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(multi, opts)
	case "text", "":
		handler = slog.NewTextHandler(multi, opts)
	default:
		return nil, fmt.Errorf("unsupported log format: %s (must be json or text)", cfg.Format)
	}
	logger := slog.New(handler)

	return func(level rohc.TraceLevel, entity string, profileID rohc.ProfileID, msg string) {
		logger.Log(context.Background(), slogLevel(level), msg, "entity", entity, "profile", profileID.String())
	}, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown level: %s", s)
	}
}

func slogLevel(l rohc.TraceLevel) slog.Level {
	switch l {
	case rohc.TraceDebug:
		return slog.LevelDebug
	case rohc.TraceWarn:
		return slog.LevelWarn
	case rohc.TraceError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
