// Package store is the local storage collaborator: filesystem access
// rooted at a single directory, addressed by portable relative paths.
package store

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/treemirror/treemirror/internal/digest"
	"github.com/treemirror/treemirror/internal/pathutil"
)

// Local exposes a directory tree through portable relative paths. Every
// access goes through path normalization so a caller cannot escape root.
type Local struct {
	root string
}

// NewLocal creates a Local rooted at dir, creating it if needed.
func NewLocal(dir string) (*Local, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("store: resolve root %q: %w", dir, err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("store: create root %q: %w", root, err)
	}
	return &Local{root: root}, nil
}

// Root returns the absolute host path of the store root.
func (l *Local) Root() string {
	return l.root
}

// Abs maps a portable relative path onto the host filesystem.
func (l *Local) Abs(rel string) (string, error) {
	rel = pathutil.Norm(rel)
	if err := pathutil.Validate(rel); err != nil {
		return "", fmt.Errorf("store: %q: %w", rel, err)
	}
	return filepath.Join(l.root, pathutil.Host(rel)), nil
}

// Open opens a file for reading.
func (l *Local) Open(rel string) (*os.File, error) {
	abs, err := l.Abs(rel)
	if err != nil {
		return nil, err
	}
	return os.Open(abs)
}

// Stat returns file info for rel.
func (l *Local) Stat(rel string) (fs.FileInfo, error) {
	abs, err := l.Abs(rel)
	if err != nil {
		return nil, err
	}
	return os.Stat(abs)
}

// Exists reports whether rel is a regular file.
func (l *Local) Exists(rel string) bool {
	info, err := l.Stat(rel)
	return err == nil && info.Mode().IsRegular()
}

// IsDir reports whether rel is a directory.
func (l *Local) IsDir(rel string) bool {
	info, err := l.Stat(rel)
	return err == nil && info.IsDir()
}

// Size returns the current byte length of rel, or 0 when absent. Used to
// pick the resume offset for partial downloads.
func (l *Local) Size(rel string) int64 {
	info, err := l.Stat(rel)
	if err != nil || !info.Mode().IsRegular() {
		return 0
	}
	return info.Size()
}

// MkdirParent ensures the parent directory of rel exists.
func (l *Local) MkdirParent(rel string) error {
	abs, err := l.Abs(rel)
	if err != nil {
		return err
	}
	return os.MkdirAll(filepath.Dir(abs), 0o755)
}

// ReadDir lists the directory at rel ("" for the root).
func (l *Local) ReadDir(rel string) ([]os.DirEntry, error) {
	if rel == "" {
		return os.ReadDir(l.root)
	}
	abs, err := l.Abs(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadDir(abs)
}

// Remove deletes the file at rel. Missing files are not an error.
func (l *Local) Remove(rel string) error {
	abs, err := l.Abs(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: remove %q: %w", rel, err)
	}
	return nil
}

// Digest computes the content digest and size of the file at rel.
func (l *Local) Digest(rel string) (digest.Digest, int64, error) {
	abs, err := l.Abs(rel)
	if err != nil {
		return digest.Digest{}, 0, err
	}
	return digest.HashFile(abs)
}

// Walk visits every regular file under the root, passing its portable
// relative path and info. Directories themselves are not visited.
func (l *Local) Walk(fn func(rel string, info fs.FileInfo) error) error {
	return filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		return fn(pathutil.Norm(rel), info)
	})
}
