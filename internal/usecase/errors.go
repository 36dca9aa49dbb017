package usecase

import "errors"

var (
	// ErrUsage indicates user input/usage errors.
	ErrUsage = errors.New("usage error")
	// ErrCritical indicates critical failures that should exit with error.
	ErrCritical = errors.New("critical error")
	// ErrLockBusy indicates an active lock held by another process.
	ErrLockBusy = errors.New("lock busy")
	// ErrInterrupted indicates a canceled or interrupted operation.
	ErrInterrupted = errors.New("interrupted")

	// ErrNotFound reports a missing save directory, archive or undo snapshot.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists reports a destination collision during archive creation or extraction.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotADirectory reports a path that exists but is not a directory.
	ErrNotADirectory = errors.New("not a directory")
	// ErrInvalidValue reports an out-of-range configuration value.
	ErrInvalidValue = errors.New("invalid value")
	// ErrAlreadyRunning is returned when starting a scheduler that is running.
	ErrAlreadyRunning = errors.New("auto backup already running")
	// ErrNotRunning is returned when stopping a scheduler that is stopped.
	ErrNotRunning = errors.New("auto backup not running")
	// ErrPermission tags filesystem failures caused by missing access rights.
	ErrPermission = errors.New("permission denied")
	// ErrGameRunning is returned when a restore is refused because the game is running.
	ErrGameRunning = errors.New("game is running")
)
