package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const statusNotSet = "(not set)"

// statusPalette holds ANSI escape sequences for colorized status output.
// When useColor is false, all fields are empty strings (no-op coloring).
type statusPalette struct {
	reset    string
	bold     string
	dim      string
	green    string
	red      string
	yellow   string
	cyan     string
	boldCyan string
}

func newStatusPalette(useColor bool) statusPalette {
	if !useColor {
		return statusPalette{}
	}
	return statusPalette{
		reset:    "\033[0m",
		bold:     "\033[1m",
		dim:      "\033[2m",
		green:    "\033[32m",
		red:      "\033[31m",
		yellow:   "\033[33m",
		cyan:     "\033[36m",
		boldCyan: "\033[1;36m",
	}
}

// StatusOptions describes status output behavior.
type StatusOptions struct {
	ConfigPath  string
	HomeDir     string
	ScanBackups bool
}

// StatusReport contains status information for rendering.
type StatusReport struct {
	Global     StatusGlobal
	Saves      []StatusSave
	Scanned    bool
	AutoBackup *AutoBackupStatus
}

// StatusGlobal contains global configuration checks.
type StatusGlobal struct {
	ConfigFile      StatusPath
	SaveRoot        StatusPath
	BackupRoot      StatusPath
	LogDir          StatusPath
	RetentionCount  int
	IntervalSeconds int
	EnabledSaves    []string
	GameGuard       bool
}

// StatusPath describes a path and its availability.
type StatusPath struct {
	Path   string
	Exists bool
	Source string
}

// StatusSave summarizes the archives of one save.
type StatusSave struct {
	Name        string
	Present     bool
	Backups     int
	Undo        int
	TotalBytes  int64
	LastBackup  time.Time
	AutoEnabled bool
	// Restoring is set while a live process holds the save's restore lock.
	Restoring   bool
	RestorePID  int
}

// Status gathers configuration and per-save backup information.
func Status(ctx context.Context, opts StatusOptions, deps *Dependencies, logger *slog.Logger) (StatusReport, error) {
	if logger == nil {
		panic("logger is required")
	}
	if ctx.Err() != nil {
		return StatusReport{}, ErrInterrupted
	}
	if deps == nil || deps.FileSystem == nil || deps.Config == nil {
		return StatusReport{}, fmt.Errorf("filesystem and config adapters are required: %w", ErrCritical)
	}
	homeDir := strings.TrimSpace(opts.HomeDir)
	if homeDir == "" {
		return StatusReport{}, fmt.Errorf("home directory is empty: %w", ErrCritical)
	}

	fs := deps.FileSystem
	var report StatusReport
	configExists, err := pathExists(ctx, fs, opts.ConfigPath)
	if err != nil {
		return StatusReport{}, fmt.Errorf("check config path: %w", err)
	}
	report.Global.ConfigFile = StatusPath{Path: opts.ConfigPath, Exists: configExists}
	if !configExists {
		report.Global.ConfigFile.Source = "defaults"
	}

	file, err := LoadConfigFile(ctx, deps, opts.ConfigPath)
	if err != nil {
		return StatusReport{}, err
	}
	cfg, err := RuntimeConfigFromFile(file, homeDir)
	if err != nil {
		return StatusReport{}, err
	}

	report.Global.SaveRoot = statusPathFor(ctx, fs, cfg.SaveRoot, file.Paths.SaveRoot)
	report.Global.BackupRoot = statusPathFor(ctx, fs, cfg.BackupRoot, file.Paths.BackupRoot)
	if dir := strings.TrimSpace(file.Logging.Dir); dir != "" {
		logDir := normalizePath(fs, dir, homeDir)
		exists, _ := pathExists(ctx, fs, logDir)
		report.Global.LogDir = StatusPath{Path: logDir, Exists: exists}
	}
	report.Global.RetentionCount = cfg.RetentionCount
	report.Global.IntervalSeconds = int(cfg.AutoBackupInterval / time.Second)
	report.Global.EnabledSaves = cfg.AutoBackupSaves
	report.Global.GameGuard = cfg.RefuseWhileGameRunning

	if auto, err := ReadAutoBackupStatus(ctx, deps, AutoBackupStatusPath(fs, cfg)); err == nil {
		report.AutoBackup = &auto
	} else if !errors.Is(err, ErrNotFound) {
		logger.WarnContext(ctx, "read auto backup status", "error", err)
	}

	contractStatusPaths(&report, homeDir, fs.PathSeparator())
	if !opts.ScanBackups {
		return report, nil
	}
	saves, err := scanSaves(ctx, cfg, deps)
	if err != nil {
		return StatusReport{}, err
	}
	report.Saves = saves
	report.Scanned = true
	return report, nil
}

func statusPathFor(ctx context.Context, fs FileSystemPort, resolved, configured string) StatusPath {
	exists, _ := pathExists(ctx, fs, resolved)
	sp := StatusPath{Path: resolved, Exists: exists}
	if strings.TrimSpace(configured) == "" {
		sp.Source = "default"
	}
	return sp
}

func scanSaves(ctx context.Context, cfg *Config, deps *Dependencies) ([]StatusSave, error) {
	entries, err := ListSaveEntries(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}
	withBackups, err := ListSavesWithBackups(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(entries))
	names := make([]string, 0, len(entries)+len(withBackups))
	for _, e := range entries {
		present[e.RelativePath] = true
		names = append(names, e.RelativePath)
	}
	for _, name := range withBackups {
		if !present[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	enabled := make(map[string]bool, len(cfg.AutoBackupSaves))
	for _, name := range cfg.AutoBackupSaves {
		enabled[name] = true
	}

	saves := make([]StatusSave, 0, len(names))
	for _, name := range names {
		backups, err := ListBackups(ctx, cfg, deps, name)
		if err != nil {
			return nil, err
		}
		undo, err := ListUndoSnapshots(ctx, cfg, deps, name)
		if err != nil {
			return nil, err
		}
		s := StatusSave{
			Name:        name,
			Present:     present[name],
			Backups:     len(backups),
			Undo:        len(undo),
			AutoEnabled: enabled[name],
		}
		if deps.Lock != nil {
			locked, owner, err := deps.Lock.IsLocked(ctx, saveLockPath(deps.FileSystem, cfg, name))
			if err != nil {
				return nil, fmt.Errorf("inspect lock for %s: %w", name, err)
			}
			s.Restoring = locked
			if locked {
				s.RestorePID = owner.PID
			}
		}
		for _, a := range backups {
			s.TotalBytes += a.SizeBytes
		}
		if len(backups) > 0 {
			s.LastBackup = backups[0].CreatedAt
		}
		saves = append(saves, s)
	}
	return saves, nil
}

func contractStatusPaths(report *StatusReport, homeDir string, sep byte) {
	for _, p := range []*StatusPath{
		&report.Global.ConfigFile,
		&report.Global.SaveRoot,
		&report.Global.BackupRoot,
		&report.Global.LogDir,
	} {
		p.Path = contractHomeDir(p.Path, homeDir, sep)
	}
}

// FormatStatus renders the status report into human-readable output.
func FormatStatus(report StatusReport, useColor bool) string {
	p := newStatusPalette(useColor)
	var b strings.Builder

	fmt.Fprintf(&b, "%sSaveVault Status%s\n", p.bold, p.reset)
	b.WriteString(strings.Repeat("─", 54))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%sConfiguration:%s\n", p.boldCyan, p.reset)
	appendStatusLine(&b, "Config file:", formatPathStatus(report.Global.ConfigFile, p))
	appendStatusLine(&b, "Save root:", formatPathStatus(report.Global.SaveRoot, p))
	appendStatusLine(&b, "Backup root:", formatPathStatus(report.Global.BackupRoot, p))
	appendStatusLine(&b, "Log dir:", formatPathStatus(report.Global.LogDir, p))
	appendStatusLine(&b, "Retention:", fmt.Sprintf("%d per save", report.Global.RetentionCount))
	appendStatusLine(&b, "Game guard:", formatBoolStatus(report.Global.GameGuard, p))

	b.WriteString("\n")
	fmt.Fprintf(&b, "%sAuto Backup:%s\n", p.boldCyan, p.reset)
	appendStatusLine(&b, "Interval:", (time.Duration(report.Global.IntervalSeconds) * time.Second).String())
	appendStatusLine(&b, "Enabled saves:", formatTextValue(strings.Join(report.Global.EnabledSaves, ", "), p))
	appendStatusLine(&b, "Daemon:", formatDaemonStatus(report.AutoBackup, p))

	if !report.Scanned {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%sSaves:%s %s(use --scan-backups)%s\n", p.boldCyan, p.reset, p.dim, p.reset)
		return b.String()
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "%sSaves:%s\n", p.boldCyan, p.reset)
	if len(report.Saves) == 0 {
		b.WriteString("  (none)\n")
		return b.String()
	}
	for _, s := range report.Saves {
		marker := "  "
		if s.AutoEnabled {
			marker = p.green + "⟳ " + p.reset
		}
		name := s.Name
		if !s.Present {
			name += fmt.Sprintf(" %s(save missing)%s", p.dim, p.reset)
		}
		if s.Restoring {
			name += fmt.Sprintf(" %s(restoring, pid %d)%s", p.yellow, s.RestorePID, p.reset)
		}
		fmt.Fprintf(&b, "  %s%s\n", marker, name)
		fmt.Fprintf(&b, "      %-14s %d (%s)\n", "Backups:", s.Backups, humanize.IBytes(uint64(s.TotalBytes)))
		fmt.Fprintf(&b, "      %-14s %s\n", "Last backup:", formatBackupTime(s.LastBackup, p))
		fmt.Fprintf(&b, "      %-14s %d\n", "Undo:", s.Undo)
	}
	return b.String()
}

func appendStatusLine(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "  %-18s %s\n", label, value)
}

func formatPathStatus(path StatusPath, p statusPalette) string {
	if path.Path == "" {
		return fmt.Sprintf("%s✗%s %s%s%s", p.red, p.reset, p.dim, statusNotSet, p.reset)
	}
	var status string
	if path.Exists {
		status = fmt.Sprintf("%s✓%s", p.green, p.reset)
	} else {
		status = fmt.Sprintf("%s✗%s %s(not found)%s", p.red, p.reset, p.dim, p.reset)
	}
	value := fmt.Sprintf("%s %s", path.Path, status)
	if path.Source != "" {
		value += fmt.Sprintf(" %s(%s)%s", p.dim, path.Source, p.reset)
	}
	return value
}

func formatDaemonStatus(status *AutoBackupStatus, p statusPalette) string {
	if status == nil {
		return fmt.Sprintf("%s–%s %s(no status published)%s", p.yellow, p.reset, p.dim, p.reset)
	}
	if !status.Running {
		return fmt.Sprintf("%s✗%s stopped", p.red, p.reset)
	}
	value := fmt.Sprintf("%s✓%s running", p.green, p.reset)
	if status.StartedAt != nil {
		value += fmt.Sprintf(" %s(since %s)%s", p.dim, humanize.Time(*status.StartedAt), p.reset)
	}
	return value
}

func formatBoolStatus(value bool, p statusPalette) string {
	if value {
		return fmt.Sprintf("%s✓%s", p.green, p.reset)
	}
	return fmt.Sprintf("%s✗%s", p.red, p.reset)
}

func formatTextValue(value string, p statusPalette) string {
	if strings.TrimSpace(value) == "" {
		return fmt.Sprintf("%s–%s %s%s%s", p.yellow, p.reset, p.dim, statusNotSet, p.reset)
	}
	return value
}

func formatBackupTime(value time.Time, p statusPalette) string {
	if value.IsZero() {
		return fmt.Sprintf("%s✗%s %s(none)%s", p.red, p.reset, p.dim, p.reset)
	}
	return fmt.Sprintf("%s %s(%s)%s", value.Local().Format("2006-01-02 15:04:05"), p.dim, humanize.Time(value), p.reset)
}
