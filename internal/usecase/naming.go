package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const archiveTimeFormat = "2006-01-02_15-04-05"

// maxNameAttempts bounds the -NN suffixes tried for same-second collisions.
const maxNameAttempts = 100

//nolint:gochecknoglobals // overridden in tests for deterministic names.
var archiveNow = time.Now

func formatArchiveName(prefix string, now time.Time, attempt int) string {
	stamp := now.UTC().Format(archiveTimeFormat)
	if attempt > 0 {
		stamp = fmt.Sprintf("%s-%02d", stamp, attempt)
	}
	return prefix + stamp + archiveExt
}

// writeUniqueArchive archives srcDir into dir under a fresh timestamped name.
// The codec refuses to replace an existing file, so a name taken by a
// concurrent writer within the same second moves on to the next suffix.
func writeUniqueArchive(
	ctx context.Context,
	deps *Dependencies,
	srcDir,
	dir,
	prefix string,
) (string, string, error) {
	now := archiveNow()
	for i := 0; i < maxNameAttempts; i++ {
		name := formatArchiveName(prefix, now, i)
		dest := deps.FileSystem.Join(dir, name)
		err := deps.Archive.Create(ctx, srcDir, dest)
		if err == nil {
			return dest, name, nil
		}
		if errors.Is(err, ErrAlreadyExists) {
			continue
		}
		return "", "", err
	}
	return "", "", fmt.Errorf("no free archive name in %s: %w", dir, ErrAlreadyExists)
}

func isArchiveName(name string) bool {
	return strings.HasSuffix(name, archiveExt) && !strings.HasPrefix(name, ".")
}

// listArchives returns archives in dir newest first. A missing dir yields no entries.
func listArchives(ctx context.Context, deps *Dependencies, dir, saveName string) ([]ArchiveInfo, error) {
	entries, err := deps.FileSystem.ReadDir(ctx, dir)
	if err != nil {
		if deps.FileSystem.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	archives := make([]ArchiveInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isArchiveName(entry.Name()) {
			continue
		}
		path := deps.FileSystem.Join(dir, entry.Name())
		info, err := deps.FileSystem.Lstat(ctx, path)
		if err != nil || !info.IsRegular() {
			continue
		}
		archives = append(archives, ArchiveInfo{
			Name:      entry.Name(),
			Path:      path,
			SaveName:  saveName,
			SizeBytes: info.Size(),
			CreatedAt: info.ModTime(),
		})
	}
	sortNewestFirst(archives)
	return archives, nil
}

// sortNewestFirst orders by creation time, then by the timestamp and
// collision suffix encoded in the name.
func sortNewestFirst(archives []ArchiveInfo) {
	sort.SliceStable(archives, func(i, j int) bool {
		if !archives[i].CreatedAt.Equal(archives[j].CreatedAt) {
			return archives[i].CreatedAt.After(archives[j].CreatedAt)
		}
		si, ni := nameOrder(archives[i].Name)
		sj, nj := nameOrder(archives[j].Name)
		if si != sj {
			return si > sj
		}
		return ni > nj
	})
}

// nameOrder splits "<prefix><stamp>[-NN].tar.gz" into stamp and suffix number.
func nameOrder(name string) (string, int) {
	base := strings.TrimSuffix(strings.TrimPrefix(name, undoNamePrefix), archiveExt)
	if len(base) <= len(archiveTimeFormat) {
		return base, 0
	}
	stamp, rest := base[:len(archiveTimeFormat)], base[len(archiveTimeFormat):]
	n, err := strconv.Atoi(strings.TrimPrefix(rest, "-"))
	if err != nil || !strings.HasPrefix(rest, "-") {
		return base, 0
	}
	return stamp, n
}

func archiveInfo(ctx context.Context, deps *Dependencies, dir, saveName, name, kind string) (ArchiveInfo, error) {
	path := deps.FileSystem.Join(dir, name)
	info, err := deps.FileSystem.Lstat(ctx, path)
	if err != nil {
		if deps.FileSystem.IsNotExist(err) {
			return ArchiveInfo{}, fmt.Errorf("%s %s for save %s: %w", kind, name, saveName, ErrNotFound)
		}
		return ArchiveInfo{}, fmt.Errorf("stat %s %s: %w", kind, path, classifyFSError(deps.FileSystem, err))
	}
	if !info.IsRegular() {
		return ArchiveInfo{}, fmt.Errorf("%s %s for save %s: %w", kind, name, saveName, ErrNotFound)
	}
	return ArchiveInfo{
		Name:      name,
		Path:      path,
		SaveName:  saveName,
		SizeBytes: info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}
