package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// LoadConfigFile reads the config file; a missing file yields defaults.
func LoadConfigFile(ctx context.Context, deps *Dependencies, path string) (ConfigFile, error) {
	if deps == nil || deps.Config == nil {
		return ConfigFile{}, fmt.Errorf("config adapter not available: %w", ErrCritical)
	}
	cfg, err := deps.Config.Load(ctx, path)
	if err != nil {
		return ConfigFile{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// UpdateRetentionCount persists a new retention count. Values below one fail
// with ErrInvalidValue and leave the file untouched.
func UpdateRetentionCount(ctx context.Context, deps *Dependencies, path string, count int) error {
	if err := ValidateRetentionCount(count); err != nil {
		return err
	}
	return updateConfigFile(ctx, deps, path, func(cfg *ConfigFile) error {
		cfg.Backup.RetentionCount = count
		return nil
	})
}

// UpdateSaveRoot persists the save root. An empty value restores the default.
func UpdateSaveRoot(ctx context.Context, deps *Dependencies, path, saveRoot string) error {
	return updateConfigFile(ctx, deps, path, func(cfg *ConfigFile) error {
		cfg.Paths.SaveRoot = strings.TrimSpace(saveRoot)
		return nil
	})
}

// UpdateBackupRoot persists the backup root. An empty value restores the default.
func UpdateBackupRoot(ctx context.Context, deps *Dependencies, path, backupRoot string) error {
	return updateConfigFile(ctx, deps, path, func(cfg *ConfigFile) error {
		cfg.Paths.BackupRoot = strings.TrimSpace(backupRoot)
		return nil
	})
}

// UpdateLastSelectedSave remembers the save a front end last worked with.
func UpdateLastSelectedSave(ctx context.Context, deps *Dependencies, path, saveName string) error {
	name, err := NormalizeSaveName(saveName)
	if err != nil {
		return err
	}
	return updateConfigFile(ctx, deps, path, func(cfg *ConfigFile) error {
		cfg.UI.LastSelectedSave = name
		return nil
	})
}

// UpdateAutoBackupInterval persists the scheduler interval (60..86400 seconds).
func UpdateAutoBackupInterval(ctx context.Context, deps *Dependencies, path string, seconds int) error {
	if err := ValidateAutoBackupInterval(seconds); err != nil {
		return err
	}
	return updateConfigFile(ctx, deps, path, func(cfg *ConfigFile) error {
		cfg.AutoBackup.IntervalSeconds = seconds
		return nil
	})
}

// UpdateAutoBackupSave adds or removes a save from the persisted enabled set.
// Enabling requires the save directory to exist under runtime.SaveRoot.
func UpdateAutoBackupSave(
	ctx context.Context,
	deps *Dependencies,
	path string,
	runtime *Config,
	saveName string,
	enabled bool,
) error {
	name, err := NormalizeSaveName(saveName)
	if err != nil {
		return err
	}
	if enabled {
		if err := requireDir(ctx, deps.FileSystem, saveDirPath(deps.FileSystem, runtime, name), "save"); err != nil {
			if errors.Is(err, ErrNotADirectory) {
				return fmt.Errorf("save %s is not a directory: %w", name, ErrNotFound)
			}
			return err
		}
	}
	return updateConfigFile(ctx, deps, path, func(cfg *ConfigFile) error {
		kept := make([]string, 0, len(cfg.AutoBackup.EnabledSaves)+1)
		for _, existing := range cfg.AutoBackup.EnabledSaves {
			norm, err := NormalizeSaveName(existing)
			if err == nil && norm == name {
				continue
			}
			kept = append(kept, existing)
		}
		if enabled {
			kept = append(kept, name)
		}
		cfg.AutoBackup.EnabledSaves = kept
		return nil
	})
}

func updateConfigFile(ctx context.Context, deps *Dependencies, path string, mutate func(*ConfigFile) error) error {
	if ctx.Err() != nil {
		return ErrInterrupted
	}
	cfg, err := LoadConfigFile(ctx, deps, path)
	if err != nil {
		return err
	}
	if err := mutate(&cfg); err != nil {
		return err
	}
	if deps.FileSystem != nil {
		if err := deps.FileSystem.CreateDir(ctx, deps.FileSystem.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := deps.Config.Save(ctx, path, cfg); err != nil {
		return fmt.Errorf("save config %s: %w", path, err)
	}
	return nil
}
