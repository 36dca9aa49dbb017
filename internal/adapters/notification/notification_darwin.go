//go:build darwin

package notification

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// Send sends a desktop notification on macOS, preferring terminal-notifier.
func (a *Adapter) Send(ctx context.Context, title, message, sound string) error {
	if ctx.Err() != nil {
		return nil
	}

	if notifierPath, err := exec.LookPath("terminal-notifier"); err == nil {
		args := []string{"-title", title, "-message", message, "-group", appName}
		if sound != "" {
			args = append(args, "-sound", sound)
		}
		a.run(ctx, notifierPath, args...)
		return nil
	}

	a.run(ctx, "osascript", "-e", appleScript(title, message, sound))
	return nil
}

func (a *Adapter) run(ctx context.Context, name string, args ...string) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 - fixed binaries, arguments are not shell-parsed
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		a.logger.Debug("notification failed", slog.Any("err", err))
	}
}

func appleScript(title, message, sound string) string {
	script := fmt.Sprintf(
		"display notification \"%s\" with title \"%s\"",
		escapeAppleScript(message),
		escapeAppleScript(title),
	)
	if sound != "" && sound != "default" {
		script += fmt.Sprintf(" sound name \"%s\"", escapeAppleScript(sound))
	}
	return script
}

func escapeAppleScript(value string) string {
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"\"", "\\\"",
		"\n", " ",
		"\r", " ",
		"\t", " ",
	)
	return replacer.Replace(value)
}
