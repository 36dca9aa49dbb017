package filesystem

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/arumata/savevault/internal/usecase"
)

// Adapter implements usecase.FileSystemPort on the local disk.
type Adapter struct {
	logger *slog.Logger
}

// New creates a new filesystem adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		panic("filesystem adapter requires logger")
	}
	return &Adapter{logger: logger}
}

func fileMode(perm int, fallback fs.FileMode) fs.FileMode {
	if perm < 0 || perm > 0o777 {
		return fallback
	}
	// #nosec G115 - perm is validated to be within safe range
	return fs.FileMode(perm)
}

// ReadFile reads file content
func (a *Adapter) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return os.ReadFile(path) // #nosec G304 - paths are controlled by usecase
}

// WriteFile writes content to file
func (a *Adapter) WriteFile(ctx context.Context, path string, data []byte, perm int) error {
	return os.WriteFile(path, data, fileMode(perm, 0o644))
}

// CreateDir creates directory and any missing parents
func (a *Adapter) CreateDir(ctx context.Context, path string, perm int) error {
	return os.MkdirAll(path, fileMode(perm, 0o755))
}

// Remove deletes a single file or empty directory
func (a *Adapter) Remove(ctx context.Context, path string) error {
	return os.Remove(path)
}

// RemoveAll removes directory and all contents
func (a *Adapter) RemoveAll(ctx context.Context, path string) error {
	return os.RemoveAll(path)
}

// Stat returns file info
func (a *Adapter) Stat(ctx context.Context, path string) (usecase.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &fileInfoWrapper{info}, nil
}

// Lstat returns file info without following symlinks
func (a *Adapter) Lstat(ctx context.Context, path string) (usecase.FileInfo, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	return &fileInfoWrapper{info}, nil
}

// Walk traverses directory tree in lexical order. It stops early when ctx is done.
func (a *Adapter) Walk(ctx context.Context, root string, walkFn usecase.WalkFunc) error {
	return filepath.Walk(root, func(path string, info fs.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var fileInfo usecase.FileInfo
		if info != nil {
			fileInfo = &fileInfoWrapper{info}
		}
		return walkFn(path, fileInfo, err)
	})
}

// ReadDir lists directory entries
func (a *Adapter) ReadDir(ctx context.Context, path string) ([]usecase.DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	result := make([]usecase.DirEntry, 0, len(entries))
	for _, entry := range entries {
		result = append(result, &dirEntryWrapper{entry})
	}
	return result, nil
}

// Move renames src to dst, creating dst's parent. Regular files that cannot be
// renamed across devices are copied and the source removed.
func (a *Adapter) Move(ctx context.Context, src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}
	info, statErr := os.Lstat(src)
	if statErr != nil || !info.Mode().IsRegular() {
		return err
	}
	a.logger.DebugContext(ctx, "rename crosses devices, copying", "src", src, "dst", dst)
	if err := copyFile(src, dst, info.Mode().Perm()); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src) // #nosec G304 - paths are controlled by usecase
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm) // #nosec G304 - paths are controlled by usecase
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Join joins path elements
func (a *Adapter) Join(elements ...string) string {
	return filepath.Join(elements...)
}

// Base returns last element of path
func (a *Adapter) Base(path string) string {
	return filepath.Base(path)
}

// Dir returns directory of path
func (a *Adapter) Dir(path string) string {
	return filepath.Dir(path)
}

// Rel returns a relative path.
func (a *Adapter) Rel(basepath, targpath string) (string, error) {
	return filepath.Rel(basepath, targpath)
}

// Clean returns the cleaned path.
func (a *Adapter) Clean(path string) string {
	return filepath.Clean(path)
}

// VolumeName returns the volume name of path.
func (a *Adapter) VolumeName(path string) string {
	return filepath.VolumeName(path)
}

// PathSeparator returns the OS-specific path separator.
func (a *Adapter) PathSeparator() byte {
	return os.PathSeparator
}

// IsNotExist reports whether err indicates that a path does not exist.
// Also covers syscall.ENOTDIR (path component is not a directory).
func (a *Adapter) IsNotExist(err error) bool {
	return os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR)
}

// IsPermission reports whether err indicates a permission error.
func (a *Adapter) IsPermission(err error) bool {
	return os.IsPermission(err) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM)
}

type fileInfoWrapper struct {
	fs.FileInfo
}

func (w *fileInfoWrapper) Mode() int {
	return int(w.FileInfo.Mode())
}

func (w *fileInfoWrapper) IsSymlink() bool {
	return w.FileInfo.Mode()&os.ModeSymlink != 0
}

func (w *fileInfoWrapper) IsRegular() bool {
	return w.FileInfo.Mode().IsRegular()
}

type dirEntryWrapper struct {
	fs.DirEntry
}
