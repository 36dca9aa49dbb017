// Package app wires the concrete adapters into usecase dependencies.
package app

import (
	"log/slog"

	"github.com/arumata/savevault/internal/adapters/archive"
	"github.com/arumata/savevault/internal/adapters/config"
	"github.com/arumata/savevault/internal/adapters/filesystem"
	"github.com/arumata/savevault/internal/adapters/lock"
	"github.com/arumata/savevault/internal/adapters/noop"
	"github.com/arumata/savevault/internal/adapters/notification"
	"github.com/arumata/savevault/internal/adapters/process"
	"github.com/arumata/savevault/internal/usecase"
)

// Options selects optional adapters.
type Options struct {
	// Notifications enables desktop notifications. When false every
	// notification is dropped regardless of the config file.
	Notifications bool
}

// NewDefaultDependencies creates dependencies with real adapters and
// notifications enabled.
func NewDefaultDependencies(logger *slog.Logger) *usecase.Dependencies {
	return NewDependencies(logger, Options{Notifications: true})
}

// NewDependencies creates dependencies with real adapters.
func NewDependencies(logger *slog.Logger, opts Options) *usecase.Dependencies {
	if logger == nil {
		panic("default dependencies require logger")
	}
	var notifier usecase.NotificationPort = noop.NewNotificationAdapter()
	if opts.Notifications {
		notifier = notification.New(logger)
	}

	return &usecase.Dependencies{
		FileSystem:   filesystem.New(logger),
		Archive:      archive.New(logger),
		Lock:         lock.New(logger),
		Process:      process.New(logger),
		Config:       config.New(logger),
		Notification: notifier,
	}
}
