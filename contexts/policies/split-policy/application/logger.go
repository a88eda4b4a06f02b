package application

import "log/slog"

// ResolveLogger is exported for the workers package.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
