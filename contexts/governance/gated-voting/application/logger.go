package application

import "log/slog"

const Module = "governance/gated-voting"

func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
