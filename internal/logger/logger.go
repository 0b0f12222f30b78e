// Package logger builds the application's slog.Logger.
//
// The handler and level depend on the environment:
//
//	dev      text, debug and above
//	staging  JSON, debug and above
//	prod     JSON, info and above
//
// When a log filename is configured, output goes to a size-rotated file
// instead of stdout.
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/aanand-mishra/crm-api/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Environments recognised by New. Anything else is treated as dev.
const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

// New returns a logger for cfg.Env writing to cfg.Log's destination, and a
// closer that flushes and releases the file, if any.
func New(cfg *config.Config) (*slog.Logger, io.Closer) {
	out, closer := output(cfg.Log)
	return slog.New(handler(cfg.Env, out)), closer
}

func output(cfg config.Log) (io.Writer, io.Closer) {
	if cfg.Filename == "" {
		return os.Stdout, nopCloser{}
	}

	w := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxAge,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
	return w, w
}

func handler(env string, w io.Writer) slog.Handler {
	switch env {
	case EnvProd:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	case EnvStaging:
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
