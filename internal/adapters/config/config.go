// Package config stores the savevault configuration as a commented TOML file.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/arumata/savevault/internal/usecase"
)

// Adapter implements ConfigPort using TOML files on disk.
type Adapter struct {
	logger *slog.Logger
}

// New creates a new config adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		panic("config adapter requires logger")
	}
	return &Adapter{logger: logger}
}

// Load reads config from path or returns defaults when the file is missing.
// Keys the current schema does not know are logged and ignored.
func (a *Adapter) Load(ctx context.Context, path string) (usecase.ConfigFile, error) {
	if err := ctx.Err(); err != nil {
		return usecase.ConfigFile{}, err
	}
	if strings.TrimSpace(path) == "" {
		return usecase.ConfigFile{}, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is controlled by usecase
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return usecase.DefaultConfigFile(), nil
		}
		return usecase.ConfigFile{}, err
	}

	cfg := usecase.DefaultConfigFile()
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return usecase.ConfigFile{}, fmt.Errorf("parse config toml: %w", err)
	}
	for _, key := range meta.Undecoded() {
		a.logger.Warn("unknown config key ignored", slog.String("key", key.String()), slog.String("path", path))
	}

	return cfg, nil
}

// Save writes config to path in TOML format with inline documentation.
// The file is replaced atomically.
func (a *Adapter) Save(ctx context.Context, path string, cfg usecase.ConfigFile) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil { // #nosec G301 - config dir is not secret
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.WriteString(renderCommentedTOML(cfg)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close config: %w", err)
	}
	// #nosec G302 - config is not secret
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod config: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

//nolint:lll // template readability is more important than line length.
func renderCommentedTOML(cfg usecase.ConfigFile) string {
	return fmt.Sprintf(`# SaveVault Configuration
# Edit while "savevault serve" is running and the scheduler picks up changes.

# ── Paths ────────────────────────────────────────────────────────
[paths]

# Directory holding the game saves. Empty = %[1]s.
# Supports ~, $HOME, ${HOME}.
save_root = %[2]s

# Directory receiving archives. Empty = %[3]s.
# Set via: savevault init --backup-root <path>
backup_root = %[4]s

# ── Backups ──────────────────────────────────────────────────────
[backup]

# Number of archives kept per save (1 or more). Oldest are removed first.
retention_count = %[5]d

# ── Auto Backup ──────────────────────────────────────────────────
[auto_backup]

# Seconds between automatic backups of one save (%[6]d..%[7]d).
interval_seconds = %[8]d

# How often the scheduler wakes up to check for due saves, in seconds.
poll_seconds = %[9]d

# Saves backed up automatically, as paths relative to save_root.
# Set via: savevault auto enable <save>
enabled_saves = %[10]s

# ── Restore ──────────────────────────────────────────────────────
[restore]

# Refuse to restore while the game is running.
refuse_while_game_running = %[11]t

# Process names checked by the guard above (case-insensitive, .exe optional).
game_process_names = %[12]s

# ── Desktop Notifications ────────────────────────────────────────
[notifications]

# Notify after restores and failed automatic backups.
enabled = %[13]t

# Notification sound ("default" = system default).
sound = %[14]s

# ── Logging ──────────────────────────────────────────────────────
[logging]

# Directory for the serve log file. Empty = log to stderr only.
dir = %[15]s

# Minimum log level: debug, info, warn, error.
level = %[16]s

# ── Front End ────────────────────────────────────────────────────
[ui]

# Save a front end last worked with. Set via: savevault config select <save>
last_selected_save = %[17]s

# Check for new releases on startup.
auto_check_updates = %[18]t
`,
		usecase.DefaultSaveRoot,
		tomlString(cfg.Paths.SaveRoot),
		usecase.DefaultBackupRoot,
		tomlString(cfg.Paths.BackupRoot),
		cfg.Backup.RetentionCount,
		usecase.MinAutoBackupIntervalSeconds,
		usecase.MaxAutoBackupIntervalSeconds,
		cfg.AutoBackup.IntervalSeconds,
		cfg.AutoBackup.PollSeconds,
		tomlStringArray(cfg.AutoBackup.EnabledSaves),
		cfg.Restore.RefuseWhileGameRunning,
		tomlStringArray(cfg.Restore.GameProcessNames),
		cfg.Notifications.Enabled,
		tomlString(cfg.Notifications.Sound),
		tomlString(cfg.Logging.Dir),
		tomlString(cfg.Logging.Level),
		tomlString(cfg.UI.LastSelectedSave),
		cfg.UI.AutoCheckUpdates,
	)
}

func tomlStringArray(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = tomlString(v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// tomlString renders s as a TOML basic string.
func tomlString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
