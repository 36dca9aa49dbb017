package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// RestoreBackup replaces the save directory with the contents of a backup
// archive. The current contents, if any, are written to an undo snapshot first.
func RestoreBackup(
	ctx context.Context,
	cfg *Config,
	deps *Dependencies,
	logger *slog.Logger,
	saveName,
	archiveName string,
) (*RestoreResult, error) {
	if logger == nil {
		panic("logger is required")
	}
	source, err := GetBackupInfo(ctx, cfg, deps, saveName, archiveName)
	if err != nil {
		return nil, err
	}
	return restoreFromArchive(ctx, cfg, deps, logger, source, true)
}

// RestoreFromUndoSnapshot replaces the save directory with an undo snapshot.
// No new undo snapshot is written, so undo is single level.
func RestoreFromUndoSnapshot(
	ctx context.Context,
	cfg *Config,
	deps *Dependencies,
	logger *slog.Logger,
	saveName,
	snapshotName string,
) (*RestoreResult, error) {
	if logger == nil {
		panic("logger is required")
	}
	source, err := GetUndoSnapshotInfo(ctx, cfg, deps, saveName, snapshotName)
	if err != nil {
		return nil, err
	}
	return restoreFromArchive(ctx, cfg, deps, logger, source, false)
}

func restoreFromArchive(
	ctx context.Context,
	cfg *Config,
	deps *Dependencies,
	logger *slog.Logger,
	source ArchiveInfo,
	withUndo bool,
) (*RestoreResult, error) {
	if ctx.Err() != nil {
		return nil, ErrInterrupted
	}
	if err := validateRestoreDependencies(deps); err != nil {
		return nil, err
	}
	if err := guardGameNotRunning(ctx, cfg, deps, logger); err != nil {
		return nil, err
	}

	saveName := source.SaveName
	lock, err := acquireSaveLock(ctx, cfg, deps, logger, saveName, "restore")
	if err != nil {
		return nil, err
	}
	defer lock.release(ctx)

	saveDir := saveDirPath(deps.FileSystem, cfg, saveName)
	liveExists, err := pathExists(ctx, deps.FileSystem, saveDir)
	if err != nil {
		return nil, fmt.Errorf("stat save %s: %w", saveDir, err)
	}
	if liveExists {
		if err := requireDir(ctx, deps.FileSystem, saveDir, "save"); err != nil {
			return nil, err
		}
	}

	result := &RestoreResult{
		SavePath:   saveDir,
		SaveName:   saveName,
		SourcePath: source.Path,
		SourceName: source.Name,
	}
	if withUndo && liveExists {
		undoPath, err := writeUndoSnapshot(ctx, cfg, deps, logger, saveName, saveDir)
		if err != nil {
			logger.ErrorContext(ctx, "Restore aborted before touching save", "save", saveName, "error", err)
			return nil, fmt.Errorf("restore aborted: %w", err)
		}
		result.UndoSnapshotPath = undoPath
		result.HasUndoSnapshot = true
	}

	logger.InfoContext(ctx, "Restoring save", "save", saveName, "archive", source.Name)
	lock.refresh(ctx, logger)
	if err := swapInArchive(ctx, deps, logger, source.Path, saveDir, liveExists, func() { lock.refresh(ctx, logger) }); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrInterrupted
		}
		logger.ErrorContext(ctx, "Restore failed", "save", saveName, "archive", source.Name, "error", err)
		return nil, fmt.Errorf("restore %s from %s: %w", saveName, source.Name, err)
	}

	logger.InfoContext(ctx, "Restore finished", "save", saveName, "archive", source.Name)
	notify(ctx, cfg, deps, logger, "Save restored", fmt.Sprintf("%s restored from %s", saveName, source.Name))
	return result, nil
}

// swapInArchive extracts into a hidden sibling of saveDir and renames it into
// place, so a failed extraction never leaves the save missing. extracted runs
// between extraction and the swap.
func swapInArchive(
	ctx context.Context,
	deps *Dependencies,
	logger *slog.Logger,
	archivePath,
	saveDir string,
	liveExists bool,
	extracted func(),
) error {
	fs := deps.FileSystem
	parent := fs.Dir(saveDir)
	base := fs.Base(saveDir)
	stamp := fmt.Sprintf("%d-%d", time.Now().UnixNano(), deps.Process.GetPID())
	staging := fs.Join(parent, "."+base+".restore-"+stamp)
	aside := fs.Join(parent, "."+base+".old-"+stamp)

	if err := deps.Archive.Extract(ctx, archivePath, staging); err != nil {
		_ = fs.RemoveAll(ctx, staging)
		return fmt.Errorf("extract: %w", err)
	}
	if extracted != nil {
		extracted()
	}

	if liveExists {
		if err := fs.Move(ctx, saveDir, aside); err != nil {
			_ = fs.RemoveAll(ctx, staging)
			return fmt.Errorf("move current save aside: %w", err)
		}
	}
	if err := fs.Move(ctx, staging, saveDir); err != nil {
		if liveExists {
			if rbErr := fs.Move(ctx, aside, saveDir); rbErr != nil {
				logger.ErrorContext(ctx, "rollback failed", "save_dir", saveDir, "kept_at", aside, "error", rbErr)
			}
		}
		_ = fs.RemoveAll(ctx, staging)
		return fmt.Errorf("move restored save into place: %w", err)
	}
	if liveExists {
		if err := fs.RemoveAll(ctx, aside); err != nil {
			logger.WarnContext(ctx, "remove replaced save", "path", aside, "error", err)
		}
	}
	return nil
}

func guardGameNotRunning(ctx context.Context, cfg *Config, deps *Dependencies, logger *slog.Logger) error {
	if !cfg.RefuseWhileGameRunning || len(cfg.GameProcessNames) == 0 {
		return nil
	}
	proc, running, err := deps.Process.FindRunning(ctx, cfg.GameProcessNames)
	if err != nil {
		logger.WarnContext(ctx, "game process check failed", "error", err)
		return nil
	}
	if running {
		return fmt.Errorf("%s (pid %d) must be closed before restoring: %w", proc.Name, proc.PID, ErrGameRunning)
	}
	return nil
}

// saveLock is a held per-save lock.
type saveLock struct {
	deps *Dependencies
	path string
}

// refresh renews the lock owner timestamp. Failures are only logged.
func (l *saveLock) refresh(ctx context.Context, logger *slog.Logger) {
	if err := l.deps.Lock.RefreshLock(ctx, l.path); err != nil {
		logger.WarnContext(ctx, "Failed to refresh lock", "path", l.path, "error", err)
	}
}

func (l *saveLock) release(ctx context.Context) {
	_ = l.deps.Lock.ReleaseLock(ctx, l.path)
}

func saveLockPath(fs FileSystemPort, cfg *Config, saveName string) string {
	return fs.Join(cfg.BackupRoot, locksDirName, strings.ReplaceAll(saveName, "/", "__")+".lock")
}

func acquireSaveLock(
	ctx context.Context,
	cfg *Config,
	deps *Dependencies,
	logger *slog.Logger,
	saveName,
	operation string,
) (*saveLock, error) {
	locksDir := deps.FileSystem.Join(cfg.BackupRoot, locksDirName)
	if err := deps.FileSystem.CreateDir(ctx, locksDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock dir: %w", err)
	}
	lockPath := saveLockPath(deps.FileSystem, cfg, saveName)
	info := LockInfo{
		PID:        deps.Process.GetPID(),
		StartTime:  time.Now(),
		Operation:  operation,
		SaveName:   saveName,
		BackupRoot: cfg.BackupRoot,
	}
	if err := deps.Lock.AcquireLock(ctx, lockPath, info); err != nil {
		logger.WarnContext(ctx, "Failed to acquire lock", "save", saveName, "error", err)
		if errors.Is(err, ErrLockBusy) {
			return nil, fmt.Errorf("save %s is busy: %w", saveName, ErrLockBusy)
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return &saveLock{deps: deps, path: lockPath}, nil
}

func validateRestoreDependencies(deps *Dependencies) error {
	if deps.Lock == nil {
		return fmt.Errorf("lock adapter not available: %w", ErrCritical)
	}
	if deps.Process == nil {
		return fmt.Errorf("process adapter not available: %w", ErrCritical)
	}
	return nil
}
