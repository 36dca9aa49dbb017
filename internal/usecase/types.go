package usecase

import "time"

// Config contains the resolved runtime configuration.
type Config struct {
	SaveRoot       string
	BackupRoot     string
	RetentionCount int

	AutoBackupInterval time.Duration
	AutoBackupPoll     time.Duration
	AutoBackupSaves    []string

	RefuseWhileGameRunning bool
	GameProcessNames       []string

	NotifyEnabled bool
	NotifySound   string
}

// FileInfo represents file information.
type FileInfo interface {
	Name() string
	Size() int64
	Mode() int
	ModTime() time.Time
	IsDir() bool
	IsSymlink() bool
	IsRegular() bool
	Sys() interface{}
}

// WalkFunc is called for each file/directory during Walk.
type WalkFunc func(path string, info FileInfo, err error) error

// DirEntry represents a directory entry.
type DirEntry interface {
	Name() string
	IsDir() bool
}

// LockInfo represents lock file information.
type LockInfo struct {
	PID               int       `json:"pid"`
	StartTime         time.Time `json:"start_time"`
	Operation         string    `json:"operation"`
	SaveName          string    `json:"save_name"`
	BackupRoot        string    `json:"backup_root"`
	Hostname          string    `json:"hostname"`
	ProcessStartTicks int64     `json:"process_start_ticks"`
	ProcessStartID    string    `json:"process_start_id"`
}

// ProcessInfo represents process information.
type ProcessInfo struct {
	PID        int
	Name       string
	StartTime  time.Time
	CPUPercent float64
	MemoryMB   int64
}

// ArchiveInfo describes one archive or undo snapshot on disk.
type ArchiveInfo struct {
	Name      string
	Path      string
	SaveName  string
	SizeBytes int64
	CreatedAt time.Time
}

// BackupResult is returned by CreateBackup.
type BackupResult struct {
	Path     string
	Name     string
	SaveName string
	Retained int
	Deleted  int
}

// RestoreResult is returned by RestoreBackup and RestoreFromUndoSnapshot.
type RestoreResult struct {
	SavePath         string
	SaveName         string
	SourcePath       string
	SourceName       string
	UndoSnapshotPath string
	HasUndoSnapshot  bool
}

// SaveEntry is a save directory discovered under the save root. Mode is empty
// for saves stored directly under the root.
type SaveEntry struct {
	Mode         string
	Name         string
	RelativePath string
	// Unsupported holds the reason the save cannot be backed up, if any.
	Unsupported  string
}

// SaveAutoBackupState is the scheduler state of one save.
type SaveAutoBackupState struct {
	SaveName   string     `json:"save_name"`
	Enabled    bool       `json:"enabled"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	NextBackup *time.Time `json:"next_backup,omitempty"`
}

// AutoBackupStatus is a point-in-time copy of the scheduler state.
type AutoBackupStatus struct {
	Running         bool                           `json:"running"`
	IntervalSeconds int                            `json:"interval_seconds"`
	StartedAt       *time.Time                     `json:"started_at,omitempty"`
	Saves           map[string]SaveAutoBackupState `json:"saves"`
}
