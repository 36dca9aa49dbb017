// Package noop provides adapters that deliberately do nothing.
package noop

import "context"

// NotificationAdapter drops every notification. It backs --no-notify and tests.
type NotificationAdapter struct{}

// NewNotificationAdapter creates a no-op notification adapter.
func NewNotificationAdapter() *NotificationAdapter {
	return &NotificationAdapter{}
}

// Send does nothing and returns nil.
func (n *NotificationAdapter) Send(ctx context.Context, title, message, sound string) error {
	return nil
}
