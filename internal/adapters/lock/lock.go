// Package lock implements per-save mutual exclusion with lock directories.
package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/arumata/savevault/internal/usecase"
)

const (
	ownerFileName = "owner.json"
	// defaultStaleAfter bounds how long a lock survives its owner going silent.
	defaultStaleAfter = 6 * time.Hour
	// creationGrace covers the window between mkdir and writing the owner file.
	creationGrace = 5 * time.Second
)

// Adapter implements usecase.LockPort. A lock is a directory created with
// mkdir, which is atomic on every supported platform, holding an owner file.
type Adapter struct {
	logger     *slog.Logger
	staleAfter time.Duration
}

// New creates a new lock adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		panic("lock adapter requires logger")
	}
	return &Adapter{logger: logger, staleAfter: defaultStaleAfter}
}

// AcquireLock takes the lock at path. A lock whose owner is gone is removed
// and taken over; a live one fails with usecase.ErrLockBusy.
func (a *Adapter) AcquireLock(ctx context.Context, path string, info usecase.LockInfo) error {
	for attempt := 0; attempt < 2; attempt++ {
		err := os.Mkdir(path, 0o750)
		if err == nil {
			if err := writeOwner(path, info); err != nil {
				_ = os.RemoveAll(path)
				return err
			}
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("failed to create lock directory: %w", err)
		}

		owner, held := a.inspect(path)
		if held {
			return fmt.Errorf(
				"lock is held by another active process (pid %d, %s): %w",
				owner.PID, owner.Operation, usecase.ErrLockBusy,
			)
		}
		a.logger.WarnContext(ctx, "Removing stale lock", "path", path, "pid", owner.PID, "operation", owner.Operation)
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove stale lock: %w", err)
		}
	}
	return fmt.Errorf("lock is held by another active process: %w", usecase.ErrLockBusy)
}

// ReleaseLock releases held lock
func (a *Adapter) ReleaseLock(ctx context.Context, path string) error {
	return os.RemoveAll(path)
}

// IsLocked reports whether path is held by a live owner.
func (a *Adapter) IsLocked(ctx context.Context, path string) (bool, usecase.LockInfo, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, usecase.LockInfo{}, nil
		}
		return false, usecase.LockInfo{}, err
	}
	owner, err := readOwner(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, usecase.LockInfo{}, nil
		}
		return false, usecase.LockInfo{}, err
	}
	return a.ownerAlive(owner), owner, nil
}

// RefreshLock bumps the lock start time so long operations are not taken for stale.
func (a *Adapter) RefreshLock(ctx context.Context, path string) error {
	owner, err := readOwner(path)
	if err != nil {
		return fmt.Errorf("failed to read lock info: %w", err)
	}
	owner.StartTime = time.Now()
	return writeOwner(path, owner)
}

// inspect returns the recorded owner and whether the lock must be respected.
func (a *Adapter) inspect(path string) (usecase.LockInfo, bool) {
	owner, err := readOwner(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Another process may be between mkdir and writing its owner file.
			if st, statErr := os.Stat(path); statErr == nil && time.Since(st.ModTime()) < creationGrace {
				return usecase.LockInfo{}, true
			}
		}
		return usecase.LockInfo{}, false
	}
	return owner, a.ownerAlive(owner)
}

func (a *Adapter) ownerAlive(owner usecase.LockInfo) bool {
	if time.Since(owner.StartTime) > a.staleAfter {
		return false
	}
	if owner.Hostname != "" {
		if hostname, err := os.Hostname(); err == nil && hostname != owner.Hostname {
			// Cannot probe processes on another machine sharing the backup root.
			return true
		}
	}
	if owner.ProcessStartID != "" {
		if id, ok := processStartID(owner.PID); ok {
			return id == owner.ProcessStartID
		}
	}
	return processAlive(owner.PID)
}

func writeOwner(dir string, info usecase.LockInfo) error {
	if info.PID == 0 {
		info.PID = os.Getpid()
	}
	if info.StartTime.IsZero() {
		info.StartTime = time.Now()
	}
	if info.Hostname == "" {
		info.Hostname, _ = os.Hostname()
	}
	if info.ProcessStartID == "" {
		if id, ok := processStartID(info.PID); ok {
			info.ProcessStartID = id
		}
	}
	if info.ProcessStartTicks == 0 {
		if ticks, ok := processStartTicks(info.PID); ok {
			info.ProcessStartTicks = ticks
		}
	}

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal lock info: %w", err)
	}
	tmp := filepath.Join(dir, ownerFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write lock info: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, ownerFileName)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write lock info: %w", err)
	}
	return nil
}

func readOwner(dir string) (usecase.LockInfo, error) {
	data, err := os.ReadFile(filepath.Join(dir, ownerFileName)) // #nosec G304 - lock paths are built by usecase
	if err != nil {
		return usecase.LockInfo{}, err
	}
	var info usecase.LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return usecase.LockInfo{}, fmt.Errorf("invalid lock file: %w", err)
	}
	return info, nil
}
