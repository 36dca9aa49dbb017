//go:build !linux && !darwin && !windows

package notification

import "context"

// Send is a no-op on platforms without a supported notifier.
func (a *Adapter) Send(ctx context.Context, title, message, sound string) error {
	a.logger.Debug("notifications are not supported on this platform")
	return nil
}
