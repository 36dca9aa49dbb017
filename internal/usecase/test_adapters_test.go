package usecase

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

type testFileSystem struct{}

func newTestFileSystem() *testFileSystem {
	return &testFileSystem{}
}

func safeFileMode(perm int, fallback fs.FileMode) fs.FileMode {
	if perm < 0 || perm > 0o777 {
		return fallback
	}
	// #nosec G115 -- perm validated to be within safe range.
	return fs.FileMode(perm)
}

func (a *testFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	_ = ctx
	// #nosec G304 -- test paths are controlled by the test harness.
	return os.ReadFile(path)
}

func (a *testFileSystem) WriteFile(ctx context.Context, path string, data []byte, perm int) error {
	_ = ctx
	return os.WriteFile(path, data, safeFileMode(perm, 0o644))
}

func (a *testFileSystem) CreateDir(ctx context.Context, path string, perm int) error {
	_ = ctx
	return os.MkdirAll(path, safeFileMode(perm, 0o755))
}

func (a *testFileSystem) Remove(ctx context.Context, path string) error {
	_ = ctx
	return os.Remove(path)
}

func (a *testFileSystem) RemoveAll(ctx context.Context, path string) error {
	_ = ctx
	return os.RemoveAll(path)
}

func (a *testFileSystem) Stat(ctx context.Context, path string) (FileInfo, error) {
	_ = ctx
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &fileInfoWrapperTest{info}, nil
}

func (a *testFileSystem) Lstat(ctx context.Context, path string) (FileInfo, error) {
	_ = ctx
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	return &fileInfoWrapperTest{info}, nil
}

func (a *testFileSystem) Walk(ctx context.Context, root string, walkFn WalkFunc) error {
	_ = ctx
	return filepath.Walk(root, func(path string, info fs.FileInfo, err error) error {
		var fileInfo FileInfo
		if info != nil {
			fileInfo = &fileInfoWrapperTest{info}
		}
		return walkFn(path, fileInfo, err)
	})
}

func (a *testFileSystem) ReadDir(ctx context.Context, path string) ([]DirEntry, error) {
	_ = ctx
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	result := make([]DirEntry, 0, len(entries))
	for _, entry := range entries {
		result = append(result, &dirEntryWrapperTest{entry})
	}
	return result, nil
}

func (a *testFileSystem) Move(ctx context.Context, src, dst string) error {
	_ = ctx
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

func (a *testFileSystem) Join(elements ...string) string { return filepath.Join(elements...) }
func (a *testFileSystem) Base(path string) string        { return filepath.Base(path) }
func (a *testFileSystem) Dir(path string) string         { return filepath.Dir(path) }
func (a *testFileSystem) Rel(basepath, targpath string) (string, error) {
	return filepath.Rel(basepath, targpath)
}
func (a *testFileSystem) Clean(path string) string      { return filepath.Clean(path) }
func (a *testFileSystem) VolumeName(path string) string { return filepath.VolumeName(path) }
func (a *testFileSystem) PathSeparator() byte           { return os.PathSeparator }
func (a *testFileSystem) IsNotExist(err error) bool {
	return os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR)
}
func (a *testFileSystem) IsPermission(err error) bool {
	return os.IsPermission(err) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM)
}

type fileInfoWrapperTest struct {
	info fs.FileInfo
}

func (f *fileInfoWrapperTest) Name() string       { return f.info.Name() }
func (f *fileInfoWrapperTest) Size() int64        { return f.info.Size() }
func (f *fileInfoWrapperTest) Mode() int          { return int(f.info.Mode()) }
func (f *fileInfoWrapperTest) ModTime() time.Time { return f.info.ModTime() }
func (f *fileInfoWrapperTest) IsDir() bool        { return f.info.IsDir() }
func (f *fileInfoWrapperTest) IsSymlink() bool    { return f.info.Mode()&os.ModeSymlink != 0 }
func (f *fileInfoWrapperTest) IsRegular() bool    { return f.info.Mode().IsRegular() }
func (f *fileInfoWrapperTest) Sys() interface{}   { return f.info.Sys() }

type dirEntryWrapperTest struct {
	entry fs.DirEntry
}

func (d *dirEntryWrapperTest) Name() string { return d.entry.Name() }
func (d *dirEntryWrapperTest) IsDir() bool  { return d.entry.IsDir() }

// testArchiver is a minimal tar.gz codec with the same existence rules as the
// real archive adapter.
type testArchiver struct {
	mu          sync.Mutex
	createCalls int
	createErr   error
	extractErr  error
}

func (a *testArchiver) Create(ctx context.Context, sourceDir, destFile string) error {
	a.mu.Lock()
	a.createCalls++
	injected := a.createErr
	a.mu.Unlock()

	info, err := os.Stat(sourceDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("source %s: %w", sourceDir, ErrNotFound)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("source %s: %w", sourceDir, ErrNotADirectory)
	}
	if injected != nil {
		return injected
	}
	// #nosec G304 -- test paths are controlled by the test harness.
	f, err := os.OpenFile(destFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("archive %s: %w", destFile, ErrAlreadyExists)
		}
		return err
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	walkErr := filepath.Walk(sourceDir, func(path string, fi fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil || rel == "." {
			return err
		}
		hdr, err := tar.FileInfoHeader(fi, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !fi.Mode().IsRegular() {
			return nil
		}
		// #nosec G304 -- test paths are controlled by the test harness.
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = tw.Write(data)
		return err
	})
	errs := []error{walkErr, tw.Close(), gz.Close(), f.Close()}
	if err := errors.Join(errs...); err != nil {
		_ = os.Remove(destFile)
		return err
	}
	return nil
}

func (a *testArchiver) Extract(ctx context.Context, archiveFile, destDir string) error {
	if a.extractErr != nil {
		return a.extractErr
	}
	// #nosec G304 -- test paths are controlled by the test harness.
	f, err := os.Open(archiveFile)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("archive %s: %w", archiveFile, ErrNotFound)
		}
		return err
	}
	defer func() { _ = f.Close() }()
	if _, err := os.Stat(destDir); err == nil {
		return fmt.Errorf("destination %s: %w", destDir, ErrAlreadyExists)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target := filepath.Join(destDir, filepath.FromSlash(hdr.Name))
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			data, err := io.ReadAll(tr)
			if err != nil {
				return err
			}
			if err := os.WriteFile(target, data, 0o644); err != nil {
				return err
			}
		}
	}
}

type fakeConfigPort struct {
	mu        sync.Mutex
	fs        FileSystemPort
	data      map[string]ConfigFile
	saveCalls int
}

func newFakeConfigPort(fs FileSystemPort) *fakeConfigPort {
	return &fakeConfigPort{
		fs:   fs,
		data: make(map[string]ConfigFile),
	}
}

func (f *fakeConfigPort) Load(ctx context.Context, path string) (ConfigFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cfg, ok := f.data[path]; ok {
		return cfg, nil
	}
	return DefaultConfigFile(), nil
}

func (f *fakeConfigPort) Save(ctx context.Context, path string, cfg ConfigFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	f.data[path] = cfg
	return f.fs.WriteFile(ctx, path, []byte("config"), 0o644)
}

type recordingConfigPort struct {
	loadFunc  func(ctx context.Context, path string) (ConfigFile, error)
	saveFunc  func(ctx context.Context, path string, cfg ConfigFile) error
	saveCalls int
}

func (r *recordingConfigPort) Load(ctx context.Context, path string) (ConfigFile, error) {
	return r.loadFunc(ctx, path)
}

func (r *recordingConfigPort) Save(ctx context.Context, path string, cfg ConfigFile) error {
	r.saveCalls++
	if r.saveFunc != nil {
		return r.saveFunc(ctx, path, cfg)
	}
	return nil
}

type fakeLock struct {
	mu       sync.Mutex
	held     map[string]LockInfo
	acquired  []string
	refreshed map[string]int
	busy      bool
}

func newFakeLock() *fakeLock {
	return &fakeLock{held: make(map[string]LockInfo), refreshed: make(map[string]int)}
}

func (l *fakeLock) AcquireLock(ctx context.Context, path string, info LockInfo) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy {
		return fmt.Errorf("lock is held by another active process: %w", ErrLockBusy)
	}
	if _, ok := l.held[path]; ok {
		return fmt.Errorf("lock is held by another active process: %w", ErrLockBusy)
	}
	l.held[path] = info
	l.acquired = append(l.acquired, path)
	return nil
}

func (l *fakeLock) ReleaseLock(ctx context.Context, path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, path)
	return nil
}

func (l *fakeLock) IsLocked(ctx context.Context, path string) (bool, LockInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	info, ok := l.held[path]
	return ok, info, nil
}

func (l *fakeLock) RefreshLock(ctx context.Context, path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[path]; !ok {
		return fmt.Errorf("lock %s is not held", path)
	}
	l.refreshed[path]++
	return nil
}

func (l *fakeLock) refreshCount(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refreshed[path]
}

type fakeProcess struct {
	running map[string]int
	err     error
}

func (p *fakeProcess) GetPID() int { return 4242 }

func (p *fakeProcess) FindRunning(ctx context.Context, names []string) (ProcessInfo, bool, error) {
	if p.err != nil {
		return ProcessInfo{}, false, p.err
	}
	for _, name := range names {
		if pid, ok := p.running[strings.ToLower(name)]; ok {
			return ProcessInfo{PID: pid, Name: name}, true, nil
		}
	}
	return ProcessInfo{}, false, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Send(ctx context.Context, title, message, sound string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, title+": "+message)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type testEnv struct {
	cfg      *Config
	deps     *Dependencies
	archiver *testArchiver
	lock     *fakeLock
	process  *fakeProcess
	notifier *recordingNotifier
	logger   *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	fs := newTestFileSystem()
	env := &testEnv{
		cfg: &Config{
			SaveRoot:           filepath.Join(root, "Saves"),
			BackupRoot:         filepath.Join(root, "Backups"),
			RetentionCount:     DefaultRetentionCount,
			AutoBackupInterval: time.Duration(DefaultAutoBackupIntervalSeconds) * time.Second,
			AutoBackupPoll:     10 * time.Millisecond,
			GameProcessNames:   DefaultGameProcessNames(),
		},
		archiver: &testArchiver{},
		lock:     newFakeLock(),
		process:  &fakeProcess{},
		notifier: &recordingNotifier{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	env.deps = &Dependencies{
		FileSystem:   fs,
		Archive:      env.archiver,
		Lock:         env.lock,
		Process:      env.process,
		Config:       newFakeConfigPort(fs),
		Notification: env.notifier,
	}
	if err := os.MkdirAll(env.cfg.SaveRoot, 0o750); err != nil {
		t.Fatalf("mkdir save root: %v", err)
	}
	return env
}

// writeSave creates files (relative path -> content) under the named save.
func (e *testEnv) writeSave(t *testing.T, saveName string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(e.cfg.SaveRoot, filepath.FromSlash(saveName))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir save: %v", err)
	}
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return dir
}

func (e *testEnv) saveDir(saveName string) string {
	return filepath.Join(e.cfg.SaveRoot, filepath.FromSlash(saveName))
}

// readTree returns relative path -> content for every regular file under dir.
func readTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	tree := make(map[string]string)
	err := filepath.Walk(dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		// #nosec G304 -- test paths are controlled by the test harness.
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		tree[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("read tree %s: %v", dir, err)
	}
	return tree
}

// extractTree unpacks an archive into a fresh temp dir and returns its files.
func extractTree(t *testing.T, archivePath string) map[string]string {
	t.Helper()
	dest := filepath.Join(t.TempDir(), "out")
	if err := (&testArchiver{}).Extract(context.Background(), archivePath, dest); err != nil {
		t.Fatalf("extract %s: %v", archivePath, err)
	}
	return readTree(t, dest)
}

func sameTree(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func archiveNames(archives []ArchiveInfo) []string {
	names := make([]string, 0, len(archives))
	for _, a := range archives {
		names = append(names, a.Name)
	}
	return names
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// fixArchiveClock pins archive names to start and advances one second per call.
func fixArchiveClock(t *testing.T, start time.Time) {
	t.Helper()
	var mu sync.Mutex
	current := start
	prev := archiveNow
	archiveNow = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := current
		current = current.Add(time.Second)
		return now
	}
	t.Cleanup(func() { archiveNow = prev })
}
