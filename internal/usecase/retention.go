package usecase

import (
	"context"
	"log/slog"
)

// CollectGarbage keeps the newest keep archives in dir and removes the rest.
// Removal is best effort: failures are logged and only lower the deleted count,
// so retained is whatever is still on disk. A missing dir yields (0, 0).
func CollectGarbage(
	ctx context.Context,
	deps *Dependencies,
	logger *slog.Logger,
	dir string,
	keep int,
) (retained, deleted int) {
	if logger == nil {
		panic("logger is required")
	}
	archives, err := listArchives(ctx, deps, dir, "")
	if err != nil {
		logger.WarnContext(ctx, "retention: list archives", "dir", dir, "error", err)
		return 0, 0
	}
	if keep < 1 {
		logger.WarnContext(ctx, "retention: refusing non-positive keep count", "dir", dir, "keep", keep)
		return len(archives), 0
	}
	if len(archives) <= keep {
		return len(archives), 0
	}

	for _, a := range archives[keep:] {
		if err := deps.FileSystem.Remove(ctx, a.Path); err != nil && !deps.FileSystem.IsNotExist(err) {
			logger.WarnContext(ctx, "retention: remove failed", "archive", a.Path, "error", err)
			continue
		}
		logger.DebugContext(ctx, "retention: removed", "archive", a.Path, "keep", keep)
		deleted++
	}
	return len(archives) - deleted, deleted
}
