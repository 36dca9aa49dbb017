// Package archive stores save directories as gzip-compressed tar files.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/arumata/savevault/internal/usecase"
)

// Adapter implements usecase.ArchivePort.
type Adapter struct {
	logger *slog.Logger
	level  int
}

// New creates an archive adapter using the default gzip level.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		panic("archive adapter requires logger")
	}
	return &Adapter{logger: logger, level: gzip.DefaultCompression}
}

// Create writes sourceDir into destFile. The archive is built in a hidden
// sibling and linked into place, so destFile is either complete or absent.
func (a *Adapter) Create(ctx context.Context, sourceDir, destFile string) (err error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("source %s: %w", sourceDir, usecase.ErrNotFound)
		}
		return fmt.Errorf("stat source: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source %s: %w", sourceDir, usecase.ErrNotADirectory)
	}
	if _, err := os.Lstat(destFile); err == nil {
		return fmt.Errorf("archive %s: %w", destFile, usecase.ErrAlreadyExists)
	}

	dir, base := filepath.Split(destFile)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := a.writeArchive(ctx, tmp, sourceDir); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	if err := publish(tmpPath, destFile); err != nil {
		return err
	}
	a.logger.DebugContext(ctx, "archive written", "path", destFile)
	return nil
}

// publish moves tmpPath to destFile without replacing an existing file.
func publish(tmpPath, destFile string) error {
	linkErr := os.Link(tmpPath, destFile)
	if linkErr == nil {
		_ = os.Remove(tmpPath)
		return nil
	}
	if os.IsExist(linkErr) {
		return fmt.Errorf("archive %s: %w", destFile, usecase.ErrAlreadyExists)
	}
	// Filesystems without hard links fall back to rename.
	if _, err := os.Lstat(destFile); err == nil {
		return fmt.Errorf("archive %s: %w", destFile, usecase.ErrAlreadyExists)
	}
	if err := os.Rename(tmpPath, destFile); err != nil {
		return fmt.Errorf("publish archive: %w", err)
	}
	return nil
}

func (a *Adapter) writeArchive(ctx context.Context, out io.Writer, sourceDir string) (err error) {
	gz, err := gzip.NewWriterLevel(out, a.level)
	if err != nil {
		return fmt.Errorf("create gzip writer: %w", err)
	}
	tw := tar.NewWriter(gz)
	defer func() {
		if closeErr := tw.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close tar stream: %w", closeErr)
		}
		if closeErr := gz.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close gzip stream: %w", closeErr)
		}
	}()

	return filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return addEntry(tw, path, filepath.ToSlash(rel), info)
	})
}

func addEntry(tw *tar.Writer, path, name string, info fs.FileInfo) error {
	var link string
	switch mode := info.Mode(); {
	case mode.IsRegular(), mode.IsDir():
	case mode&os.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return fmt.Errorf("read link %s: %w", name, err)
		}
		link = target
	default:
		// special files are not archived
		return nil
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("tar header for %s: %w", name, err)
	}
	header.Name = name
	if info.IsDir() {
		header.Name += "/"
	}
	header.Uname, header.Gname = "", ""
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(path) // #nosec G304 - path comes from walking the source dir
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := io.CopyN(tw, f, header.Size); err != nil {
		return fmt.Errorf("copy %s: %w", name, err)
	}
	return nil
}

// Extract unpacks archiveFile into destDir, which must not exist yet. A failed
// extraction removes destDir again.
func (a *Adapter) Extract(ctx context.Context, archiveFile, destDir string) (err error) {
	f, err := os.Open(archiveFile) // #nosec G304 - archive paths are built by usecase
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("archive %s: %w", archiveFile, usecase.ErrNotFound)
		}
		return fmt.Errorf("open archive: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := os.MkdirAll(filepath.Dir(destDir), 0o750); err != nil {
		return fmt.Errorf("create parent of %s: %w", destDir, err)
	}
	if err := os.Mkdir(destDir, 0o750); err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("destination %s: %w", destDir, usecase.ErrAlreadyExists)
		}
		return fmt.Errorf("create destination: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(destDir)
		}
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer func() {
		_ = gz.Close()
	}()

	tr := tar.NewReader(gz)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}
		if err := a.extractEntry(ctx, tr, header, destDir); err != nil {
			return err
		}
	}
	a.logger.DebugContext(ctx, "archive extracted", "archive", archiveFile, "dest", destDir)
	return nil
}

func (a *Adapter) extractEntry(ctx context.Context, tr *tar.Reader, header *tar.Header, destDir string) error {
	target, err := destPath(destDir, header.Name)
	if err != nil {
		return err
	}
	if target == filepath.Clean(destDir) {
		return nil
	}
	if err := checkNoSymlinkParents(destDir, target); err != nil {
		return fmt.Errorf("%s: %w", header.Name, err)
	}

	switch header.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(target, dirMode(header)); err != nil {
			return fmt.Errorf("create dir %s: %w", header.Name, err)
		}
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return fmt.Errorf("create dir for %s: %w", header.Name, err)
		}
		if info, err := os.Lstat(target); err == nil && info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("extract %s: entry would overwrite a symlink", header.Name)
		}
		if err := writeFile(tr, target, header); err != nil {
			return fmt.Errorf("extract %s: %w", header.Name, err)
		}
		if !header.ModTime.IsZero() {
			_ = os.Chtimes(target, header.ModTime, header.ModTime)
		}
	case tar.TypeSymlink:
		linkname, err := checkLinkTarget(destDir, target, header.Linkname)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return fmt.Errorf("create dir for %s: %w", header.Name, err)
		}
		if err := os.Symlink(linkname, target); err != nil {
			return fmt.Errorf("create symlink %s: %w", header.Name, err)
		}
	default:
		a.logger.DebugContext(ctx, "skipping unsupported tar entry", "name", header.Name, "type", header.Typeflag)
	}
	return nil
}

// destPath joins an entry name onto destDir and rejects names that escape it.
func destPath(destDir, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("invalid file path in archive: %s", name)
	}
	root := filepath.Clean(destDir)
	target := filepath.Join(root, filepath.FromSlash(name))
	if !within(root, target) {
		return "", fmt.Errorf("invalid file path in archive: %s", name)
	}
	return target, nil
}

// checkLinkTarget validates a symlink entry and returns the cleaned link text
// to store. Stored links carry ".." only as a leading prefix.
func checkLinkTarget(destDir, target, linkname string) (string, error) {
	if linkname == "" || filepath.IsAbs(linkname) || strings.HasPrefix(linkname, "/") || filepath.VolumeName(linkname) != "" {
		return "", fmt.Errorf("symlink %s points outside the archive root", linkname)
	}
	cleaned := filepath.Clean(filepath.FromSlash(linkname))
	resolved := filepath.Join(filepath.Dir(target), cleaned)
	if !within(destDir, resolved) {
		return "", fmt.Errorf("symlink %s points outside the archive root", linkname)
	}
	return cleaned, nil
}

// checkNoSymlinkParents rejects target when any directory between destDir and
// target is a symlink. Writes never pass through links created by earlier entries.
func checkNoSymlinkParents(destDir, target string) error {
	root := filepath.Clean(destDir)
	rel, err := filepath.Rel(root, filepath.Dir(target))
	if err != nil {
		return fmt.Errorf("resolve parent: %w", err)
	}
	if rel == "." {
		return nil
	}
	cur := root
	for _, part := range strings.Split(rel, string(os.PathSeparator)) {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("inspect %s: %w", cur, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return errors.New("path passes through a symlink")
		}
	}
	return nil
}

func within(destDir, path string) bool {
	root := filepath.Clean(destDir)
	return path == root || strings.HasPrefix(path, root+string(os.PathSeparator))
}

func writeFile(r io.Reader, target string, header *tar.Header) error {
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode(header)) // #nosec G304 - target validated by destPath
	if err != nil {
		return err
	}
	if _, err := io.CopyN(out, r, header.Size); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func fileMode(header *tar.Header) os.FileMode {
	perm := os.FileMode(header.Mode).Perm() // #nosec G115 - masked to permission bits
	if perm == 0 {
		return 0o644
	}
	return perm | 0o600
}

func dirMode(header *tar.Header) os.FileMode {
	perm := os.FileMode(header.Mode).Perm() // #nosec G115 - masked to permission bits
	if perm == 0 {
		return 0o755
	}
	return perm | 0o700
}
