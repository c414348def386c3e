package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fruitsalade/filebrowser/internal/logging"
	"github.com/fruitsalade/filebrowser/internal/metrics"
	"github.com/fruitsalade/filebrowser/pkg/models"
	"github.com/fruitsalade/filebrowser/pkg/protocol"
)

// LocalBackend serves a directory tree on the local filesystem.
type LocalBackend struct {
	root string
}

// NewLocal creates a backend rooted at root, which must be an existing directory.
func NewLocal(root string) (*LocalBackend, error) {
	if root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}
	return &LocalBackend{root: resolved}, nil
}

// Root returns the resolved root directory.
func (b *LocalBackend) Root() string { return b.root }

func (b *LocalBackend) Type() string { return "local" }

func (b *LocalBackend) Close() error { return nil }

// List implements Backend.
func (b *LocalBackend) List(_ context.Context, p string) (*protocol.FileInfo, error) {
	start := time.Now()
	fi, err := b.list(p)
	metrics.RecordStorageOperation(b.Type(), "list", time.Since(start), err == nil || errors.Is(err, ErrNotFound))
	return fi, err
}

func (b *LocalBackend) list(p string) (*protocol.FileInfo, error) {
	full, err := b.resolve(p)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}

	if !info.IsDir() {
		return &protocol.FileInfo{Name: info.Name(), Type: models.KindFile, Size: info.Size()}, nil
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", p, err)
	}

	fi := &protocol.FileInfo{
		Name:     info.Name(),
		Type:     models.KindDirectory,
		Contents: make([]models.DirectoryEntry, 0, len(entries)),
	}
	for _, e := range entries {
		ei, err := b.entryInfo(p, e)
		if err != nil {
			logging.Debug("skipping unreadable entry", zap.String("path", p), zap.String("name", e.Name()), zap.Error(err))
			continue
		}
		entry := models.DirectoryEntry{Name: e.Name(), Kind: models.KindFile, Size: ei.Size()}
		if ei.IsDir() {
			entry.Kind = models.KindDirectory
			entry.Size = 0
		}
		fi.Contents = append(fi.Contents, entry)
	}
	return fi, nil
}

// entryInfo describes e. Symlinks are described by their target and must
// resolve inside the root, the same as when they are navigated to.
func (b *LocalBackend) entryInfo(dir string, e fs.DirEntry) (fs.FileInfo, error) {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.Info()
	}
	target, err := b.resolve(path.Join(dir, e.Name()))
	if err != nil {
		return nil, err
	}
	return os.Stat(target)
}

// resolve maps p to a filesystem path, following symlinks and keeping the
// result inside the root.
func (b *LocalBackend) resolve(p string) (string, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	full := filepath.Join(b.root, filepath.FromSlash(clean))

	resolved, err := filepath.EvalSymlinks(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	if !within(b.root, resolved) {
		logging.Warn("symlink escapes root", zap.String("path", p), zap.String("target", resolved))
		return "", ErrInvalidPath
	}
	return resolved, nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
