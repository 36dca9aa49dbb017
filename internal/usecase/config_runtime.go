package usecase

import (
	"fmt"
	"strings"
	"time"
)

// RuntimeConfigFromFile converts TOML config into runtime config, resolving
// default roots against homeDir and validating numeric settings.
func RuntimeConfigFromFile(cfg ConfigFile, homeDir string) (*Config, error) {
	cleanHome := strings.TrimSpace(homeDir)
	if cleanHome == "" {
		return nil, fmt.Errorf("home directory is empty: %w", ErrCritical)
	}

	saveRoot := strings.TrimSpace(cfg.Paths.SaveRoot)
	if saveRoot == "" {
		saveRoot = DefaultSaveRoot
	}
	backupRoot := strings.TrimSpace(cfg.Paths.BackupRoot)
	if backupRoot == "" {
		backupRoot = DefaultBackupRoot
	}

	if err := ValidateRetentionCount(cfg.Backup.RetentionCount); err != nil {
		return nil, err
	}

	interval := cfg.AutoBackup.IntervalSeconds
	if interval == 0 {
		interval = DefaultAutoBackupIntervalSeconds
	}
	if err := ValidateAutoBackupInterval(interval); err != nil {
		return nil, err
	}
	poll := cfg.AutoBackup.PollSeconds
	if poll <= 0 {
		poll = DefaultAutoBackupPollSeconds
	}

	names := cfg.Restore.GameProcessNames
	if len(names) == 0 {
		names = DefaultGameProcessNames()
	}

	return &Config{
		SaveRoot:               expandHomeDir(saveRoot, cleanHome),
		BackupRoot:             expandHomeDir(backupRoot, cleanHome),
		RetentionCount:         cfg.Backup.RetentionCount,
		AutoBackupInterval:     time.Duration(interval) * time.Second,
		AutoBackupPoll:         time.Duration(poll) * time.Second,
		AutoBackupSaves:        dedupeSaveNames(cfg.AutoBackup.EnabledSaves),
		RefuseWhileGameRunning: cfg.Restore.RefuseWhileGameRunning,
		GameProcessNames:       append([]string(nil), names...),
		NotifyEnabled:          cfg.Notifications.Enabled,
		NotifySound:            strings.TrimSpace(cfg.Notifications.Sound),
	}, nil
}

// ValidateRetentionCount rejects counts below one.
func ValidateRetentionCount(count int) error {
	if count < 1 {
		return fmt.Errorf("retention count must be at least 1, got %d: %w", count, ErrInvalidValue)
	}
	return nil
}

// ValidateAutoBackupInterval accepts 60..86400 seconds inclusive.
func ValidateAutoBackupInterval(seconds int) error {
	if seconds < MinAutoBackupIntervalSeconds || seconds > MaxAutoBackupIntervalSeconds {
		return fmt.Errorf(
			"interval must be between %d and %d seconds, got %d: %w",
			MinAutoBackupIntervalSeconds,
			MaxAutoBackupIntervalSeconds,
			seconds,
			ErrInvalidValue,
		)
	}
	return nil
}

func dedupeSaveNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		clean := strings.TrimSpace(name)
		if clean == "" {
			continue
		}
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}
	return out
}
