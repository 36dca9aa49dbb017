package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const initBackupTimeFormat = "20060102-150405"

//nolint:gochecknoglobals // overridden in tests for deterministic backups.
var initNow = time.Now

// InitOptions describes init behavior.
type InitOptions struct {
	ConfigPath     string
	SaveRoot       string
	BackupRoot     string
	RetentionCount int
	Force          bool
	DryRun         bool
	HomeDir        string
}

// Init writes the config file and creates the backup root.
func Init(ctx context.Context, opts InitOptions, deps *Dependencies, logger *slog.Logger) error {
	if logger == nil {
		panic("logger is required")
	}
	if ctx.Err() != nil {
		return ErrInterrupted
	}
	if err := validateInitDependencies(deps); err != nil {
		return err
	}
	homeDir, err := normalizeInitInputs(opts)
	if err != nil {
		return err
	}

	cfg := DefaultConfigFile()
	cfg.Paths.SaveRoot = strings.TrimSpace(opts.SaveRoot)
	cfg.Paths.BackupRoot = strings.TrimSpace(opts.BackupRoot)
	if opts.RetentionCount != 0 {
		if err := ValidateRetentionCount(opts.RetentionCount); err != nil {
			return err
		}
		cfg.Backup.RetentionCount = opts.RetentionCount
	}
	runtime, err := RuntimeConfigFromFile(cfg, homeDir)
	if err != nil {
		return err
	}

	if err := ensureConfig(ctx, opts, deps, cfg); err != nil {
		return err
	}
	if err := ensureInitDirs(ctx, deps, runtime, opts.DryRun); err != nil {
		return err
	}

	saveRootExists, err := pathExists(ctx, deps.FileSystem, runtime.SaveRoot)
	if err != nil {
		return fmt.Errorf("check save root: %w", ErrCritical)
	}
	if !saveRootExists {
		logger.WarnContext(ctx, "Save root does not exist yet", "path", runtime.SaveRoot)
	}

	logger.InfoContext(ctx, "Init completed", "config", opts.ConfigPath, "backup_root", runtime.BackupRoot)
	return nil
}

func validateInitDependencies(deps *Dependencies) error {
	if deps == nil {
		return fmt.Errorf("dependencies are required: %w", ErrCritical)
	}
	if deps.FileSystem == nil {
		return fmt.Errorf("filesystem adapter not available: %w", ErrCritical)
	}
	if deps.Config == nil {
		return fmt.Errorf("config adapter not available: %w", ErrCritical)
	}
	return nil
}

func normalizeInitInputs(opts InitOptions) (string, error) {
	homeDir := strings.TrimSpace(opts.HomeDir)
	if homeDir == "" {
		return "", fmt.Errorf("home directory is empty: %w", ErrCritical)
	}
	if strings.TrimSpace(opts.ConfigPath) == "" {
		return "", fmt.Errorf("config path is empty: %w", ErrCritical)
	}
	if opts.SaveRoot != "" && strings.TrimSpace(opts.SaveRoot) == "" {
		return "", fmt.Errorf("save root is empty: %w", ErrUsage)
	}
	if opts.BackupRoot != "" && strings.TrimSpace(opts.BackupRoot) == "" {
		return "", fmt.Errorf("backup root is empty: %w", ErrUsage)
	}
	return homeDir, nil
}

func ensureConfig(ctx context.Context, opts InitOptions, deps *Dependencies, cfg ConfigFile) error {
	exists, err := pathExists(ctx, deps.FileSystem, opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("check config path: %w", ErrCritical)
	}
	if !exists {
		if opts.DryRun {
			return nil
		}
		return writeConfig(ctx, deps, opts.ConfigPath, cfg)
	}
	info, err := deps.FileSystem.Stat(ctx, opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("stat config: %w", ErrCritical)
	}
	if info.IsDir() {
		return fmt.Errorf("config path is a directory: %w", ErrUsage)
	}
	if !opts.Force {
		return fmt.Errorf("config already exists at %s: %w", opts.ConfigPath, ErrUsage)
	}
	if opts.DryRun {
		return nil
	}
	if err := backupConfig(ctx, deps.FileSystem, opts.ConfigPath); err != nil {
		return err
	}
	return writeConfig(ctx, deps, opts.ConfigPath, cfg)
}

func backupConfig(ctx context.Context, fs FileSystemPort, configPath string) error {
	backupPath := configPath + ".bak." + initNow().Format(initBackupTimeFormat)
	if err := fs.Move(ctx, configPath, backupPath); err != nil {
		return fmt.Errorf("backup config: %w", ErrCritical)
	}
	return nil
}

func writeConfig(ctx context.Context, deps *Dependencies, configPath string, cfg ConfigFile) error {
	if err := deps.FileSystem.CreateDir(ctx, deps.FileSystem.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", ErrCritical)
	}
	if err := deps.Config.Save(ctx, configPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", ErrCritical)
	}
	return nil
}

func ensureInitDirs(ctx context.Context, deps *Dependencies, cfg *Config, dryRun bool) error {
	if dryRun {
		return nil
	}
	if err := deps.FileSystem.CreateDir(ctx, cfg.BackupRoot, 0o755); err != nil {
		return fmt.Errorf("create backup root: %w", ErrCritical)
	}
	return nil
}
