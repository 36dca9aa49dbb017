package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ListUndoSnapshots returns the undo snapshots of a save, newest first.
func ListUndoSnapshots(ctx context.Context, cfg *Config, deps *Dependencies, saveName string) ([]ArchiveInfo, error) {
	if err := validateBackupDependencies(cfg, deps); err != nil {
		return nil, err
	}
	name, err := NormalizeSaveName(saveName)
	if err != nil {
		return nil, err
	}
	all, err := listArchives(ctx, deps, undoSnapshotDir(deps.FileSystem, cfg, name), name)
	if err != nil {
		return nil, err
	}
	snapshots := all[:0]
	for _, a := range all {
		if strings.HasPrefix(a.Name, undoNamePrefix) {
			snapshots = append(snapshots, a)
		}
	}
	return snapshots, nil
}

// GetUndoSnapshotInfo describes one named undo snapshot.
func GetUndoSnapshotInfo(
	ctx context.Context,
	cfg *Config,
	deps *Dependencies,
	saveName,
	snapshotName string,
) (ArchiveInfo, error) {
	if err := validateBackupDependencies(cfg, deps); err != nil {
		return ArchiveInfo{}, err
	}
	name, err := NormalizeSaveName(saveName)
	if err != nil {
		return ArchiveInfo{}, err
	}
	entry, err := validateEntryName(snapshotName, "undo snapshot")
	if err != nil {
		return ArchiveInfo{}, err
	}
	return archiveInfo(ctx, deps, undoSnapshotDir(deps.FileSystem, cfg, name), name, entry, "undo snapshot")
}

// DeleteUndoSnapshot removes one named undo snapshot.
func DeleteUndoSnapshot(
	ctx context.Context,
	cfg *Config,
	deps *Dependencies,
	logger *slog.Logger,
	saveName,
	snapshotName string,
) error {
	if logger == nil {
		panic("logger is required")
	}
	info, err := GetUndoSnapshotInfo(ctx, cfg, deps, saveName, snapshotName)
	if err != nil {
		return err
	}
	if err := deps.FileSystem.Remove(ctx, info.Path); err != nil {
		if deps.FileSystem.IsNotExist(err) {
			return fmt.Errorf("undo snapshot %s for save %s: %w", info.Name, info.SaveName, ErrNotFound)
		}
		return fmt.Errorf("delete undo snapshot %s: %w", info.Path, classifyFSError(deps.FileSystem, err))
	}
	logger.InfoContext(ctx, "Undo snapshot deleted", "save", info.SaveName, "snapshot", info.Name)
	return nil
}

// writeUndoSnapshot archives the live save directory before it is replaced.
func writeUndoSnapshot(
	ctx context.Context,
	cfg *Config,
	deps *Dependencies,
	logger *slog.Logger,
	saveName,
	saveDir string,
) (string, error) {
	dir := undoSnapshotDir(deps.FileSystem, cfg, saveName)
	if err := deps.FileSystem.CreateDir(ctx, dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure undo dir %s: %w", dir, err)
	}
	path, name, err := writeUniqueArchive(ctx, deps, saveDir, dir, undoNamePrefix)
	if err != nil {
		return "", fmt.Errorf("write undo snapshot: %w", err)
	}
	logger.InfoContext(ctx, "Undo snapshot written", "save", saveName, "snapshot", name)
	return path, nil
}
