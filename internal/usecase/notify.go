package usecase

import (
	"context"
	"log/slog"
)

// notify sends a desktop notification when enabled. Failures are only logged.
func notify(ctx context.Context, cfg *Config, deps *Dependencies, logger *slog.Logger, title, message string) {
	if !cfg.NotifyEnabled || deps.Notification == nil {
		return
	}
	if err := deps.Notification.Send(ctx, title, message, cfg.NotifySound); err != nil {
		logger.WarnContext(ctx, "notification failed", "error", err)
	}
}
