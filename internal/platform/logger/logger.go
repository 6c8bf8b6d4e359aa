package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/14kear/sso-prettyslog/slogpretty/slogpretty"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// New builds the process logger: colored output for local runs, JSON lines
// everywhere else. The service name is attached to every record.
func New(env string, service string) *slog.Logger {
	var logger *slog.Logger
	switch strings.ToLower(strings.TrimSpace(env)) {
	case EnvLocal:
		logger = newPretty()
	case EnvDev:
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if service != "" {
		logger = logger.With("service", service)
	}
	return logger
}

func newPretty() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}
	return slog.New(opts.NewPrettyHandler(os.Stdout))
}
