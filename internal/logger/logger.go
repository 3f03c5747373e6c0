package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/combat-engine/internal/config"
)

// Setup builds the process logger and installs it as the slog default. Every
// record carries the service name so api and worker output can share a sink.
func Setup(cfg *config.Config, service string) *slog.Logger {
	l := slog.New(newHandler(os.Stdout, cfg)).With("service", service, "environment", cfg.Environment)
	slog.SetDefault(l)
	return l
}

func newHandler(w io.Writer, cfg *config.Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: cfg.LogLevel <= slog.LevelDebug,
	}
	if cfg.Environment == "production" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}

// WithSession scopes a logger to one conflict session. An empty ID is a no-op.
func WithSession(logger *slog.Logger, sessionID string) *slog.Logger {
	if sessionID == "" {
		return logger
	}
	return logger.With("session_id", sessionID)
}

func WithCombatant(logger *slog.Logger, combatantID string) *slog.Logger {
	return logger.With("combatant", combatantID)
}

// WithError adds err to the logger context. A nil error is a no-op.
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	return logger.With("error", err.Error())
}
