package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ConfigureAutoBackup applies cfg to a scheduler: new config, interval, a
// refreshed save set, and exactly the saves listed in cfg enabled. Saves that
// no longer exist are logged and skipped.
func ConfigureAutoBackup(
	ctx context.Context,
	svc *AutoBackupService,
	cfg *Config,
	logger *slog.Logger,
) error {
	if logger == nil {
		panic("logger is required")
	}
	svc.UpdateConfig(cfg)
	if err := svc.SetInterval(int(cfg.AutoBackupInterval / time.Second)); err != nil {
		return err
	}
	if err := svc.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh saves: %w", err)
	}

	wanted := make(map[string]struct{}, len(cfg.AutoBackupSaves))
	for _, name := range cfg.AutoBackupSaves {
		norm, err := NormalizeSaveName(name)
		if err != nil {
			logger.WarnContext(ctx, "Ignoring invalid auto backup save", "save", name, "error", err)
			continue
		}
		wanted[norm] = struct{}{}
		if svc.IsSaveEnabled(norm) {
			continue
		}
		if err := svc.EnableSave(ctx, norm); err != nil {
			if errors.Is(err, ErrNotFound) {
				logger.WarnContext(ctx, "Auto backup save not found", "save", norm)
				continue
			}
			return err
		}
		logger.InfoContext(ctx, "Auto backup enabled", "save", norm)
	}
	for _, name := range svc.EnabledSaves() {
		if _, ok := wanted[name]; ok {
			continue
		}
		if err := svc.DisableSave(name); err != nil {
			return err
		}
		logger.InfoContext(ctx, "Auto backup disabled", "save", name)
	}
	return nil
}

// WriteAutoBackupStatus publishes a status snapshot for other processes.
func WriteAutoBackupStatus(ctx context.Context, deps *Dependencies, path string, status AutoBackupStatus) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	if err := deps.FileSystem.CreateDir(ctx, deps.FileSystem.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure status dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := deps.FileSystem.WriteFile(ctx, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	if err := deps.FileSystem.Move(ctx, tmp, path); err != nil {
		_ = deps.FileSystem.Remove(ctx, tmp)
		return fmt.Errorf("publish status: %w", err)
	}
	return nil
}

// ReadAutoBackupStatus loads the snapshot written by a running daemon.
// ErrNotFound means no daemon has published a status yet.
func ReadAutoBackupStatus(ctx context.Context, deps *Dependencies, path string) (AutoBackupStatus, error) {
	data, err := deps.FileSystem.ReadFile(ctx, path)
	if err != nil {
		if deps.FileSystem.IsNotExist(err) {
			return AutoBackupStatus{}, fmt.Errorf("auto backup status %s: %w", path, ErrNotFound)
		}
		return AutoBackupStatus{}, fmt.Errorf("read status: %w", err)
	}
	var status AutoBackupStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return AutoBackupStatus{}, fmt.Errorf("decode status: %w", err)
	}
	if status.Saves == nil {
		status.Saves = map[string]SaveAutoBackupState{}
	}
	return status, nil
}
