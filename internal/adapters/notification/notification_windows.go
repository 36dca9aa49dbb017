//go:build windows

package notification

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// Send shows a toast notification through PowerShell.
func (a *Adapter) Send(ctx context.Context, title, message, sound string) error {
	if ctx.Err() != nil {
		return nil
	}

	shell, err := exec.LookPath("powershell.exe")
	if err != nil {
		a.logger.Debug("notification backend not found", slog.Any("err", err))
		return nil
	}
	cmd := exec.CommandContext(ctx, shell, "-NoProfile", "-NonInteractive", "-Command", toastScript(title, message, sound)) // #nosec G204 - values are quoted
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if runErr := cmd.Run(); runErr != nil {
		a.logger.Debug("notification failed", slog.Any("err", runErr))
	}
	return nil
}

func toastScript(title, message, sound string) string {
	audio := `<audio silent="true"/>`
	if sound != "" {
		audio = `<audio src="ms-winsoundevent:Notification.Default"/>`
	}
	xml := fmt.Sprintf(
		`<toast><visual><binding template="ToastGeneric"><text>%s</text><text>%s</text></binding></visual>%s</toast>`,
		escapeXML(title), escapeXML(message), audio,
	)
	return strings.Join([]string{
		`[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] > $null`,
		`[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] > $null`,
		`$doc = New-Object Windows.Data.Xml.Dom.XmlDocument`,
		`$doc.LoadXml('` + strings.ReplaceAll(xml, "'", "''") + `')`,
		`[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier('` + appName + `').Show([Windows.UI.Notifications.ToastNotification]::new($doc))`,
	}, "; ")
}

func escapeXML(value string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\"", "&quot;", "'", "&apos;")
	return replacer.Replace(value)
}
