// Package notification shows desktop notifications through the platform's
// command line notifier.
package notification

import "log/slog"

const appName = "SaveVault"

// Adapter implements NotificationPort. Missing notifiers are logged at debug
// level and never reported as errors.
type Adapter struct {
	logger *slog.Logger
}

// New creates a new notification adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{logger: logger}
}
