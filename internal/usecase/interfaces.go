package usecase

import (
	"context"
)

// Dependencies represents all external dependencies needed by use cases
type Dependencies struct {
	FileSystem   FileSystemPort
	Archive      ArchivePort
	Lock         LockPort
	Process      ProcessPort
	Config       ConfigPort
	Notification NotificationPort
}

// Ports define the interfaces that use cases need (hexagonal architecture)

// FileSystemPort defines filesystem operations needed by use cases
type FileSystemPort interface {
	// Core file operations
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte, perm int) error
	CreateDir(ctx context.Context, path string, perm int) error
	Remove(ctx context.Context, path string) error
	RemoveAll(ctx context.Context, path string) error
	Stat(ctx context.Context, path string) (FileInfo, error)
	Lstat(ctx context.Context, path string) (FileInfo, error)

	// Directory operations
	Walk(ctx context.Context, root string, walkFn WalkFunc) error
	ReadDir(ctx context.Context, path string) ([]DirEntry, error)

	// File operations
	Move(ctx context.Context, src, dst string) error

	// Path operations
	Join(elements ...string) string
	Base(path string) string
	Dir(path string) string
	Rel(basepath, targpath string) (string, error)
	Clean(path string) string
	VolumeName(path string) string
	PathSeparator() byte

	// Error classification
	IsNotExist(err error) bool
	IsPermission(err error) bool
}

// ArchivePort packs a directory tree into a single compressed file and back.
type ArchivePort interface {
	// Create archives sourceDir into destFile. destFile must not exist; it either
	// appears complete or not at all.
	Create(ctx context.Context, sourceDir, destFile string) error
	// Extract materializes archiveFile into destDir, which must not exist.
	Extract(ctx context.Context, archiveFile, destDir string) error
}

// ConfigPort defines configuration operations needed by use cases
type ConfigPort interface {
	Load(ctx context.Context, path string) (ConfigFile, error)
	Save(ctx context.Context, path string, cfg ConfigFile) error
}

// LockPort defines locking operations needed by use cases
type LockPort interface {
	AcquireLock(ctx context.Context, path string, info LockInfo) error
	ReleaseLock(ctx context.Context, path string) error
	IsLocked(ctx context.Context, path string) (bool, LockInfo, error)
	RefreshLock(ctx context.Context, path string) error
}

// ProcessPort defines process operations needed by use cases
type ProcessPort interface {
	GetPID() int
	// FindRunning returns the first process whose executable name matches one of
	// names (case-insensitive). ok is false when none is running.
	FindRunning(ctx context.Context, names []string) (ProcessInfo, bool, error)
}

// NotificationPort defines desktop notification operations needed by use cases
type NotificationPort interface {
	// Send sends a desktop notification. sound can be empty.
	Send(ctx context.Context, title, message, sound string) error
}
