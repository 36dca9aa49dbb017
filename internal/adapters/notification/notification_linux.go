//go:build linux

package notification

import (
	"context"
	"io"
	"log/slog"
	"os/exec"
)

// Send sends a desktop notification through notify-send.
func (a *Adapter) Send(ctx context.Context, title, message, sound string) error {
	if ctx.Err() != nil {
		return nil
	}

	notifyPath, err := exec.LookPath("notify-send")
	if err != nil {
		a.logger.Debug("notification backend not found", slog.Any("err", err))
		return nil
	}

	args := []string{"--app-name=" + appName}
	if sound != "" {
		args = append(args, "--hint=string:sound-name:"+linuxSoundName(sound))
	}
	args = append(args, title, message)
	cmd := exec.CommandContext(ctx, notifyPath, args...) // #nosec G204 - fixed binary, arguments are not shell-parsed
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if runErr := cmd.Run(); runErr != nil {
		a.logger.Debug("notification failed", slog.Any("err", runErr))
	}
	return nil
}

// linuxSoundName maps the generic "default" to the freedesktop sound theme name.
func linuxSoundName(sound string) string {
	if sound == "default" {
		return "message-new-instant"
	}
	return sound
}
