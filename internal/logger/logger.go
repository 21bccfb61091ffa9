// Package logger builds the process-wide slog logger and the scoped loggers
// handed to request handlers and engines.
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/adventure-engine/internal/config"
)

const service = "adventure-engine"

// Setup installs the default logger for cfg: JSON records in production,
// key=value text elsewhere.
func Setup(cfg *config.Config) *slog.Logger {
	return setup(cfg, os.Stdout)
}

func setup(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(w, opts)
	}

	log := slog.New(handler).With("service", service)
	if cfg.StorageBackend != "" {
		log = log.With("storage", cfg.StorageBackend)
	}
	slog.SetDefault(log)
	return log
}

// WithRequestID tags records with the chi request id.
func WithRequestID(log *slog.Logger, requestID string) *slog.Logger {
	return log.With("request_id", requestID)
}

// WithSession scopes a logger to one playthrough. Engine and store records
// written through it carry both ids.
func WithSession(log *slog.Logger, sessionID, adventureID string) *slog.Logger {
	return log.With("session_id", sessionID, "adventure", adventureID)
}
