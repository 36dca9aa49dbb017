package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// ListSaveEntries scans the save root. Children of a directory are reported as
// "<mode>/<name>" saves when they look like game saves; a top-level directory
// that itself looks like a save is reported on its own.
func ListSaveEntries(ctx context.Context, cfg *Config, deps *Dependencies) ([]SaveEntry, error) {
	if cfg == nil || deps == nil || deps.FileSystem == nil {
		return nil, fmt.Errorf("filesystem adapter not available: %w", ErrCritical)
	}
	fs := deps.FileSystem
	top, err := fs.ReadDir(ctx, cfg.SaveRoot)
	if err != nil {
		if fs.IsNotExist(err) {
			return []SaveEntry{}, nil
		}
		return nil, fmt.Errorf("read save root %s: %w", cfg.SaveRoot, err)
	}

	entries := []SaveEntry{}
	for _, modeEntry := range top {
		if ctx.Err() != nil {
			return nil, ErrInterrupted
		}
		if !modeEntry.IsDir() || strings.HasPrefix(modeEntry.Name(), ".") {
			continue
		}
		mode := modeEntry.Name()
		modeDir := fs.Join(cfg.SaveRoot, mode)
		children, err := fs.ReadDir(ctx, modeDir)
		if err != nil {
			continue
		}
		found := false
		for _, child := range children {
			if !child.IsDir() || strings.HasPrefix(child.Name(), ".") {
				continue
			}
			if looksLikeSaveDir(ctx, fs, fs.Join(modeDir, child.Name())) {
				entries = append(entries, newSaveEntry(mode, child.Name()))
				found = true
			}
		}
		if !found && looksLikeSaveDir(ctx, fs, modeDir) {
			entries = append(entries, newSaveEntry("", mode))
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Mode != entries[j].Mode {
			return entries[i].Mode < entries[j].Mode
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

func newSaveEntry(mode, name string) SaveEntry {
	rel := name
	if mode != "" {
		rel = mode + "/" + name
	}
	entry := SaveEntry{Mode: mode, Name: name, RelativePath: rel}
	if _, err := NormalizeSaveName(rel); err != nil {
		entry.Unsupported = err.Error()
	}
	return entry
}

// looksLikeSaveDir reports map/*.bin or map/*.dat chunks, or save.bin and
// map_*.bin files at the top of dir.
func looksLikeSaveDir(ctx context.Context, fs FileSystemPort, dir string) bool {
	if entries, err := fs.ReadDir(ctx, fs.Join(dir, "map")); err == nil {
		for _, e := range entries {
			name := e.Name()
			if !e.IsDir() && (strings.HasSuffix(name, ".bin") || strings.HasSuffix(name, ".dat")) {
				return true
			}
		}
	}
	entries, err := fs.ReadDir(ctx, dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if name == "save.bin" || (strings.HasPrefix(name, "map_") && strings.HasSuffix(name, ".bin")) {
			return true
		}
	}
	return false
}
