package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/arumata/savevault/internal/usecase"
)

func TestAdapter_LoadMissingReturnsDefaults(t *testing.T) {
	t.Parallel()
	adapter := New(slog.Default())
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := adapter.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(cfg, usecase.DefaultConfigFile()) {
		t.Fatal("expected default config to be returned")
	}
}

func TestAdapter_SaveAndLoad(t *testing.T) {
	t.Parallel()
	adapter := New(slog.Default())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	original := usecase.ConfigFile{
		Paths: usecase.PathsConfig{
			SaveRoot:   `C:\Users\me\Zomboid\Saves`,
			BackupRoot: "~/Zomboid \"Backups\"",
		},
		Backup: usecase.BackupConfig{RetentionCount: 3},
		AutoBackup: usecase.AutoBackupConfig{
			IntervalSeconds: 900,
			PollSeconds:     5,
			EnabledSaves:    []string{"Survival/Alpha", "Builder/Camp"},
		},
		Restore: usecase.RestoreConfig{
			RefuseWhileGameRunning: true,
			GameProcessNames:       []string{"ProjectZomboid64"},
		},
		Notifications: usecase.NotificationsConfig{
			Enabled: true,
			Sound:   "Glass",
		},
		Logging: usecase.LoggingConfig{
			Dir:   "/logs",
			Level: "debug",
		},
		UI: usecase.UIConfig{
			LastSelectedSave: "Survival/Alpha",
			AutoCheckUpdates: false,
		},
	}

	if err := adapter.Save(context.Background(), path, original); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	loaded, err := adapter.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	if !reflect.DeepEqual(loaded, original) {
		t.Fatalf("loaded config does not match saved config:\n%+v\n%+v", loaded, original)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only config.toml, got %d entries", len(entries))
	}
}

func TestAdapter_SaveProducesCommentedTOML(t *testing.T) {
	t.Parallel()
	adapter := New(slog.Default())
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := adapter.Save(context.Background(), path, usecase.DefaultConfigFile()); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	data, err := os.ReadFile(path) // #nosec G304 - test data
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	content := string(data)

	for _, marker := range []string{
		"# SaveVault Configuration",
		"# ── Paths",
		"# ── Auto Backup",
		"# ── Restore",
		"[paths]",
		"[backup]",
		"[auto_backup]",
		"[restore]",
		"[notifications]",
		"[logging]",
		"[ui]",
		"enabled_saves = []",
		"retention_count = 10",
	} {
		if !strings.Contains(content, marker) {
			t.Errorf("expected config to contain %q", marker)
		}
	}
}

func TestAdapter_LoadInvalidTOML(t *testing.T) {
	t.Parallel()
	adapter := New(slog.Default())
	path := filepath.Join(t.TempDir(), "config.toml")

	// #nosec G306 - test data does not require restrictive permissions.
	if err := os.WriteFile(path, []byte("backup = ["), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := adapter.Load(context.Background(), path); err == nil {
		t.Fatal("expected error for invalid toml")
	}
}

func TestAdapter_LoadPartialKeepsDefaultsAndWarnsUnknown(t *testing.T) {
	t.Parallel()
	var logs bytes.Buffer
	adapter := New(slog.New(slog.NewTextHandler(&logs, nil)))
	path := filepath.Join(t.TempDir(), "config.toml")

	content := "[backup]\nretention_count = 4\nkeep_days = 30\n"
	// #nosec G306 - test data does not require restrictive permissions.
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := adapter.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Backup.RetentionCount != 4 {
		t.Fatalf("expected retention 4, got %d", cfg.Backup.RetentionCount)
	}
	if cfg.AutoBackup.IntervalSeconds != usecase.DefaultAutoBackupIntervalSeconds {
		t.Fatalf("expected default interval, got %d", cfg.AutoBackup.IntervalSeconds)
	}
	if !strings.Contains(logs.String(), "backup.keep_days") {
		t.Fatalf("expected unknown key warning, got %q", logs.String())
	}
}

func TestAdapter_EmptyPath(t *testing.T) {
	t.Parallel()
	adapter := New(slog.Default())
	if _, err := adapter.Load(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty load path")
	}
	if err := adapter.Save(context.Background(), "", usecase.DefaultConfigFile()); err == nil {
		t.Fatal("expected error for empty save path")
	}
}

func TestTomlString(t *testing.T) {
	tests := map[string]string{
		"plain":      `"plain"`,
		`a"b`:        `"a\"b"`,
		`C:\x`:       `"C:\\x"`,
		"tab\tnl\n":  `"tab\tnl\n"`,
		"bell\a":     `"bell\u0007"`,
		"юникод":     `"юникод"`,
	}
	for in, want := range tests {
		if got := tomlString(in); got != want {
			t.Errorf("tomlString(%q) = %s, want %s", in, got, want)
		}
	}
}

var _ usecase.ConfigPort = (*Adapter)(nil)
