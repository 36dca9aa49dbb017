package lock

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/arumata/savevault/internal/usecase"
)

func newAdapter() *Adapter {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeOwnerFile(t *testing.T, lockPath string, info usecase.LockInfo) {
	t.Helper()
	if err := os.MkdirAll(lockPath, 0o750); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(info)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(lockPath, ownerFileName), data, 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestAdapter_LockLifecycle(t *testing.T) {
	ctx := context.Background()
	adapter := newAdapter()
	lockPath := filepath.Join(t.TempDir(), "Survival__Alpha.lock")

	info := usecase.LockInfo{
		PID:        os.Getpid(),
		StartTime:  time.Now(),
		Operation:  "restore",
		SaveName:   "Survival/Alpha",
		BackupRoot: "/backups",
	}
	if err := adapter.AcquireLock(ctx, lockPath, info); err != nil {
		t.Fatal(err)
	}

	locked, got, err := adapter.IsLocked(ctx, lockPath)
	if err != nil || !locked {
		t.Fatalf("expected lock to be active, err=%v", err)
	}
	if got.PID != os.Getpid() || got.SaveName != "Survival/Alpha" || got.Operation != "restore" {
		t.Fatalf("unexpected owner: %+v", got)
	}

	if err := adapter.RefreshLock(ctx, lockPath); err != nil {
		t.Fatal(err)
	}
	if err := adapter.ReleaseLock(ctx, lockPath); err != nil {
		t.Fatal(err)
	}
	locked, _, err = adapter.IsLocked(ctx, lockPath)
	if err != nil {
		t.Fatal(err)
	}
	if locked {
		t.Fatal("expected lock to be released")
	}
}

func TestAdapter_AcquireLockConflict(t *testing.T) {
	ctx := context.Background()
	adapter := newAdapter()
	lockPath := filepath.Join(t.TempDir(), "save.lock")
	info := usecase.LockInfo{PID: os.Getpid(), StartTime: time.Now(), Operation: "restore"}

	if err := adapter.AcquireLock(ctx, lockPath, info); err != nil {
		t.Fatal(err)
	}
	err := adapter.AcquireLock(ctx, lockPath, info)
	if !errors.Is(err, usecase.ErrLockBusy) {
		t.Fatalf("expected lock busy, got %v", err)
	}
}

func TestAdapter_StaleLocks(t *testing.T) {
	hostname := mustHostname(t)
	tests := []struct {
		name  string
		owner usecase.LockInfo
	}{
		{
			name:  "too old",
			owner: usecase.LockInfo{PID: os.Getpid(), StartTime: time.Now().Add(-48 * time.Hour), Hostname: hostname},
		},
		{
			name:  "invalid pid",
			owner: usecase.LockInfo{PID: 0, StartTime: time.Now(), Hostname: hostname},
		},
		{
			name:  "dead process",
			owner: usecase.LockInfo{PID: 999999, StartTime: time.Now(), Hostname: hostname},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adapter := newAdapter()
			lockPath := filepath.Join(t.TempDir(), "save.lock")
			writeOwnerFile(t, lockPath, tt.owner)

			locked, _, err := adapter.IsLocked(ctx, lockPath)
			if err != nil {
				t.Fatal(err)
			}
			if locked {
				t.Fatal("expected stale lock to be inactive")
			}
			if err := adapter.AcquireLock(ctx, lockPath, usecase.LockInfo{Operation: "restore"}); err != nil {
				t.Fatalf("expected stale lock takeover, got %v", err)
			}
			_, got, err := adapter.IsLocked(ctx, lockPath)
			if err != nil {
				t.Fatal(err)
			}
			if got.PID != os.Getpid() {
				t.Fatalf("expected new owner, got %+v", got)
			}
		})
	}
}

func TestAdapter_ForeignHostIsRespected(t *testing.T) {
	ctx := context.Background()
	adapter := newAdapter()
	lockPath := filepath.Join(t.TempDir(), "save.lock")
	writeOwnerFile(t, lockPath, usecase.LockInfo{
		PID:       999999,
		StartTime: time.Now(),
		Hostname:  mustHostname(t) + "-elsewhere",
		Operation: "restore",
	})

	err := adapter.AcquireLock(ctx, lockPath, usecase.LockInfo{})
	if !errors.Is(err, usecase.ErrLockBusy) {
		t.Fatalf("expected lock busy, got %v", err)
	}
}

func TestAdapter_ProcessStartMismatch(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("process start id validation is only available on linux/darwin")
	}
	ctx := context.Background()
	adapter := newAdapter()
	lockPath := filepath.Join(t.TempDir(), "save.lock")
	writeOwnerFile(t, lockPath, usecase.LockInfo{
		PID:            os.Getpid(),
		StartTime:      time.Now(),
		Hostname:       mustHostname(t),
		ProcessStartID: "mismatch",
	})

	locked, _, err := adapter.IsLocked(ctx, lockPath)
	if err != nil {
		t.Fatal(err)
	}
	if locked {
		t.Fatal("expected lock to be inactive with mismatched process start id")
	}
}

func TestAdapter_AcquireLock_FillsDefaults(t *testing.T) {
	ctx := context.Background()
	adapter := newAdapter()
	lockPath := filepath.Join(t.TempDir(), "save.lock")

	if err := adapter.AcquireLock(ctx, lockPath, usecase.LockInfo{}); err != nil {
		t.Fatal(err)
	}
	locked, info, err := adapter.IsLocked(ctx, lockPath)
	if err != nil || !locked {
		t.Fatal("expected lock to be active")
	}
	if info.PID == 0 || info.Hostname == "" || info.StartTime.IsZero() {
		t.Fatalf("expected lock info defaults to be filled, got %+v", info)
	}
	if (runtime.GOOS == "linux" || runtime.GOOS == "darwin") && info.ProcessStartID == "" {
		t.Fatal("expected process start id to be set")
	}
	if _, err := os.Stat(filepath.Join(lockPath, ownerFileName+".tmp")); !os.IsNotExist(err) {
		t.Fatalf("temporary owner file left behind: %v", err)
	}
}

func TestAdapter_FreshLockWithoutOwnerIsRespected(t *testing.T) {
	ctx := context.Background()
	adapter := newAdapter()
	lockPath := filepath.Join(t.TempDir(), "save.lock")
	if err := os.MkdirAll(lockPath, 0o750); err != nil {
		t.Fatal(err)
	}

	if err := adapter.AcquireLock(ctx, lockPath, usecase.LockInfo{}); !errors.Is(err, usecase.ErrLockBusy) {
		t.Fatalf("expected lock busy during creation grace, got %v", err)
	}

	old := time.Now().Add(-time.Minute)
	if err := os.Chtimes(lockPath, old, old); err != nil {
		t.Fatal(err)
	}
	if err := adapter.AcquireLock(ctx, lockPath, usecase.LockInfo{}); err != nil {
		t.Fatalf("expected abandoned lock takeover, got %v", err)
	}
}

func TestAdapter_IsLocked_NoLock(t *testing.T) {
	ctx := context.Background()
	adapter := newAdapter()
	locked, _, err := adapter.IsLocked(ctx, filepath.Join(t.TempDir(), "save.lock"))
	if err != nil {
		t.Fatal(err)
	}
	if locked {
		t.Fatal("expected lock to be inactive")
	}
}

func TestAdapter_IsLocked_NoOwnerFile(t *testing.T) {
	ctx := context.Background()
	adapter := newAdapter()
	lockPath := filepath.Join(t.TempDir(), "save.lock")
	if err := os.MkdirAll(lockPath, 0o750); err != nil {
		t.Fatal(err)
	}
	locked, _, err := adapter.IsLocked(ctx, lockPath)
	if err != nil {
		t.Fatal(err)
	}
	if locked {
		t.Fatal("expected lock to be inactive without owner file")
	}
}

func TestAdapter_AcquireLock_InvalidPath(t *testing.T) {
	ctx := context.Background()
	adapter := newAdapter()
	lockPath := filepath.Join(t.TempDir(), "missing", "save.lock")

	err := adapter.AcquireLock(ctx, lockPath, usecase.LockInfo{PID: os.Getpid(), StartTime: time.Now()})
	if err == nil || errors.Is(err, usecase.ErrLockBusy) {
		t.Fatalf("expected filesystem error, got %v", err)
	}
}

func TestProcessStartID_CurrentProcess(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" && runtime.GOOS != "windows" {
		t.Skip("no process start id on this platform")
	}
	first, ok := processStartID(os.Getpid())
	if !ok || first == "" {
		t.Fatal("expected start id for current process")
	}
	second, ok := processStartID(os.Getpid())
	if !ok || second != first {
		t.Fatalf("start id not stable: %q vs %q", first, second)
	}
	if !processAlive(os.Getpid()) {
		t.Fatal("current process must be alive")
	}
}

func mustHostname(t *testing.T) string {
	t.Helper()
	hostname, err := os.Hostname()
	if err != nil {
		t.Fatalf("hostname error: %v", err)
	}
	return hostname
}

var _ usecase.LockPort = (*Adapter)(nil)
