package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// CreateBackup archives the save directory into a new timestamped archive and
// applies the retention policy to the save's backup directory.
func CreateBackup(
	ctx context.Context,
	cfg *Config,
	deps *Dependencies,
	logger *slog.Logger,
	saveName string,
) (*BackupResult, error) {
	if logger == nil {
		panic("logger is required")
	}
	if ctx.Err() != nil {
		return nil, ErrInterrupted
	}
	if err := validateBackupDependencies(cfg, deps); err != nil {
		return nil, err
	}
	name, err := NormalizeSaveName(saveName)
	if err != nil {
		return nil, err
	}

	srcDir := saveDirPath(deps.FileSystem, cfg, name)
	if err := requireDir(ctx, deps.FileSystem, srcDir, "save"); err != nil {
		if errors.Is(err, ErrNotADirectory) {
			return nil, fmt.Errorf("save %s is not a directory: %w", name, ErrNotFound)
		}
		return nil, err
	}

	backupDir := saveBackupDir(deps.FileSystem, cfg, name)
	if err := deps.FileSystem.CreateDir(ctx, backupDir, 0o755); err != nil {
		logger.ErrorContext(ctx, "ensure backup dir", "dir", backupDir, "error", err)
		return nil, fmt.Errorf("ensure backup dir %s: %w", backupDir, err)
	}

	logger.InfoContext(ctx, "Creating backup", "save", name, "dir", backupDir)
	path, archiveName, err := writeUniqueArchive(ctx, deps, srcDir, backupDir, "")
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrInterrupted
		}
		logger.ErrorContext(ctx, "Backup failed", "save", name, "error", err)
		return nil, fmt.Errorf("create archive for %s: %w", name, err)
	}

	result := &BackupResult{Path: path, Name: archiveName, SaveName: name}
	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.WarnContext(ctx, "retention panic", "save", name, "panic", r)
			}
		}()
		result.Retained, result.Deleted = CollectGarbage(ctx, deps, logger, backupDir, cfg.RetentionCount)
	}()

	logger.InfoContext(
		ctx,
		"Backup finished",
		"save", name,
		"archive", archiveName,
		"retained", result.Retained,
		"deleted", result.Deleted,
	)
	return result, nil
}

// ListBackups returns the archives of one save, newest first.
func ListBackups(ctx context.Context, cfg *Config, deps *Dependencies, saveName string) ([]ArchiveInfo, error) {
	if err := validateBackupDependencies(cfg, deps); err != nil {
		return nil, err
	}
	name, err := NormalizeSaveName(saveName)
	if err != nil {
		return nil, err
	}
	return listArchives(ctx, deps, saveBackupDir(deps.FileSystem, cfg, name), name)
}

// GetBackupInfo describes one named archive.
func GetBackupInfo(
	ctx context.Context,
	cfg *Config,
	deps *Dependencies,
	saveName,
	archiveName string,
) (ArchiveInfo, error) {
	if err := validateBackupDependencies(cfg, deps); err != nil {
		return ArchiveInfo{}, err
	}
	name, err := NormalizeSaveName(saveName)
	if err != nil {
		return ArchiveInfo{}, err
	}
	entry, err := validateEntryName(archiveName, "backup")
	if err != nil {
		return ArchiveInfo{}, err
	}
	return archiveInfo(ctx, deps, saveBackupDir(deps.FileSystem, cfg, name), name, entry, "backup")
}

// CountBackups returns the number of archives kept for a save.
func CountBackups(ctx context.Context, cfg *Config, deps *Dependencies, saveName string) (int, error) {
	archives, err := ListBackups(ctx, cfg, deps, saveName)
	if err != nil {
		return 0, err
	}
	return len(archives), nil
}

// DeleteBackup removes one named archive.
func DeleteBackup(
	ctx context.Context,
	cfg *Config,
	deps *Dependencies,
	logger *slog.Logger,
	saveName,
	archiveName string,
) error {
	if logger == nil {
		panic("logger is required")
	}
	info, err := GetBackupInfo(ctx, cfg, deps, saveName, archiveName)
	if err != nil {
		return err
	}
	if err := deps.FileSystem.Remove(ctx, info.Path); err != nil {
		if deps.FileSystem.IsNotExist(err) {
			return fmt.Errorf("backup %s for save %s: %w", info.Name, info.SaveName, ErrNotFound)
		}
		return fmt.Errorf("delete backup %s: %w", info.Path, classifyFSError(deps.FileSystem, err))
	}
	logger.InfoContext(ctx, "Backup deleted", "save", info.SaveName, "archive", info.Name)
	return nil
}

// ListSavesWithBackups returns every save that has at least one archive, as
// '/'-separated names relative to the backup root.
func ListSavesWithBackups(ctx context.Context, cfg *Config, deps *Dependencies) ([]string, error) {
	if err := validateBackupDependencies(cfg, deps); err != nil {
		return nil, err
	}
	exists, err := pathExists(ctx, deps.FileSystem, cfg.BackupRoot)
	if err != nil {
		return nil, fmt.Errorf("stat backup root: %w", err)
	}
	if !exists {
		return []string{}, nil
	}

	seen := make(map[string]struct{})
	walkErr := deps.FileSystem.Walk(ctx, cfg.BackupRoot, func(path string, info FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := info.Name()
		if info.IsDir() {
			if path != cfg.BackupRoot && (strings.HasPrefix(name, ".") || strings.HasSuffix(name, undoDirSuffix)) {
				return errSkipDir
			}
			return nil
		}
		if !info.IsRegular() || !isArchiveName(name) {
			return nil
		}
		dir := deps.FileSystem.Dir(path)
		if dir == cfg.BackupRoot {
			return nil
		}
		rel, err := deps.FileSystem.Rel(cfg.BackupRoot, dir)
		if err != nil {
			return nil
		}
		seen[strings.ReplaceAll(rel, string(deps.FileSystem.PathSeparator()), "/")] = struct{}{}
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return nil, ErrInterrupted
		}
		return nil, fmt.Errorf("scan backup root: %w", walkErr)
	}

	saves := make([]string, 0, len(seen))
	for name := range seen {
		saves = append(saves, name)
	}
	sort.Strings(saves)
	return saves, nil
}

func validateBackupDependencies(cfg *Config, deps *Dependencies) error {
	if cfg == nil {
		return fmt.Errorf("config is required: %w", ErrCritical)
	}
	if deps == nil || deps.FileSystem == nil {
		return fmt.Errorf("filesystem adapter not available: %w", ErrCritical)
	}
	if deps.Archive == nil {
		return fmt.Errorf("archive adapter not available: %w", ErrCritical)
	}
	if strings.TrimSpace(cfg.SaveRoot) == "" || strings.TrimSpace(cfg.BackupRoot) == "" {
		return fmt.Errorf("save root and backup root must be set: %w", ErrUsage)
	}
	return nil
}
