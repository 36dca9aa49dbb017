package usecase

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"strings"
)

// errSkipDir tells Walk to skip the current directory.
var errSkipDir = iofs.SkipDir

const (
	archiveExt        = ".tar.gz"
	undoDirSuffix     = "_undo"
	undoNamePrefix    = "undo_"
	locksDirName      = ".locks"
	stateDirName      = ".savevault"
	configDirName     = "savevault"
	configFileName    = "config.toml"
	autoBackupStateFn = "autobackup.json"
)

// ConfigPathIn returns the config file location inside the user config directory.
func ConfigPathIn(fs FileSystemPort, userConfigDir string) string {
	return fs.Join(userConfigDir, configDirName, configFileName)
}

// AutoBackupStatusPath returns where the daemon publishes its scheduler status.
func AutoBackupStatusPath(fs FileSystemPort, cfg *Config) string {
	return fs.Join(cfg.BackupRoot, stateDirName, autoBackupStateFn)
}

// NormalizeSaveName validates a save name and returns it with '/' separators.
// Names are relative paths such as "Survival/MySave".
func NormalizeSaveName(name string) (string, error) {
	clean := strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	clean = strings.Trim(clean, "/")
	if clean == "" {
		return "", fmt.Errorf("save name is empty: %w", ErrUsage)
	}
	segments := strings.Split(clean, "/")
	for _, seg := range segments {
		switch {
		case seg == "", seg == ".", seg == "..":
			return "", fmt.Errorf("invalid save name %q: %w", name, ErrUsage)
		case strings.HasPrefix(seg, "."):
			return "", fmt.Errorf("save name %q must not contain hidden segments: %w", name, ErrUsage)
		case strings.ContainsAny(seg, ":*?\"<>|"):
			return "", fmt.Errorf("save name %q contains reserved characters: %w", name, ErrUsage)
		}
	}
	if strings.HasSuffix(segments[len(segments)-1], undoDirSuffix) {
		return "", fmt.Errorf("save name %q ends in %q, which is reserved for undo snapshot directories: %w",
			name, undoDirSuffix, ErrUsage)
	}
	return strings.Join(segments, "/"), nil
}

// validateEntryName rejects archive or snapshot names that would leave their directory.
func validateEntryName(name, kind string) (string, error) {
	clean := strings.TrimSpace(name)
	if clean == "" || clean == "." || clean == ".." || strings.ContainsAny(clean, "/\\") {
		return "", fmt.Errorf("invalid %s name %q: %w", kind, name, ErrUsage)
	}
	return clean, nil
}

func joinSaveName(fs FileSystemPort, root, saveName string) string {
	parts := append([]string{root}, strings.Split(saveName, "/")...)
	return fs.Join(parts...)
}

func saveDirPath(fs FileSystemPort, cfg *Config, saveName string) string {
	return joinSaveName(fs, cfg.SaveRoot, saveName)
}

func saveBackupDir(fs FileSystemPort, cfg *Config, saveName string) string {
	return joinSaveName(fs, cfg.BackupRoot, saveName)
}

func undoSnapshotDir(fs FileSystemPort, cfg *Config, saveName string) string {
	return joinSaveName(fs, cfg.BackupRoot, saveName) + undoDirSuffix
}

func pathExists(ctx context.Context, fs FileSystemPort, path string) (bool, error) {
	info, err := fs.Stat(ctx, path)
	if err != nil {
		if fs.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info != nil, nil
}

// requireDir reports ErrNotFound when path is absent and ErrNotADirectory when it is a file.
func requireDir(ctx context.Context, fs FileSystemPort, path, what string) error {
	info, err := fs.Stat(ctx, path)
	if err != nil {
		if fs.IsNotExist(err) {
			return fmt.Errorf("%s %s: %w", what, path, ErrNotFound)
		}
		return fmt.Errorf("stat %s %s: %w", what, path, classifyFSError(fs, err))
	}
	if !info.IsDir() {
		return fmt.Errorf("%s %s: %w", what, path, ErrNotADirectory)
	}
	return nil
}

// classifyFSError tags permission failures with ErrPermission.
func classifyFSError(fs FileSystemPort, err error) error {
	if err != nil && fs.IsPermission(err) && !errors.Is(err, ErrPermission) {
		return fmt.Errorf("%w: %w", ErrPermission, err)
	}
	return err
}

// ExpandHomeDirPublic expands ~ and $HOME prefixes in path.
func ExpandHomeDirPublic(path, homeDir string) string {
	return expandHomeDir(path, homeDir)
}

func expandHomeDir(path, homeDir string) string {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return clean
	}
	home := strings.TrimRight(homeDir, "/\\")
	for _, prefix := range []string{"~", "$HOME", "${HOME}"} {
		if clean == prefix {
			return homeDir
		}
		if strings.HasPrefix(clean, prefix+"/") || strings.HasPrefix(clean, prefix+"\\") {
			return home + clean[len(prefix):]
		}
	}
	return clean
}

func contractHomeDir(path, homeDir string, sep byte) string {
	if homeDir == "" || path == "" {
		return path
	}
	if path == homeDir {
		return "~"
	}
	prefix := homeDir + string(sep)
	if strings.HasPrefix(path, prefix) {
		return "~" + string(sep) + path[len(prefix):]
	}
	return path
}

func normalizePath(fs FileSystemPort, path, homeDir string) string {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return ""
	}
	expanded := expandHomeDir(clean, homeDir)
	cleaned := fs.Clean(expanded)
	if cleaned == "." {
		return ""
	}
	return trimTrailingSeparators(fs, cleaned)
}

func trimTrailingSeparators(fs FileSystemPort, path string) string {
	if path == "" {
		return ""
	}
	sep := fs.PathSeparator()
	if path == string(sep) {
		return path
	}
	volume := fs.VolumeName(path)
	if volume != "" {
		rest := strings.TrimPrefix(path, volume)
		if rest == "" || rest == string(sep) || rest == "/" || rest == "\\" {
			return volume + string(sep)
		}
	}
	return strings.TrimRight(path, "/\\")
}
