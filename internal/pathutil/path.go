// Package pathutil converts between host file paths and the portable
// slash-separated form used in change log entries and over the wire.
package pathutil

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

var ErrInvalidPath = errors.New("invalid path")

// Norm converts a host-specific path into the canonical portable form:
// slash-separated, cleaned, no leading slash. Two spellings of the same
// location normalize to the same string.
func Norm(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	p = strings.TrimLeft(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// Validate reports whether a normalized path is safe to use as a key:
// non-empty, already in canonical form, confined to the tree, and free of
// control characters, which cannot be represented in the line-oriented
// change log.
func Validate(p string) error {
	if p == "" {
		return ErrInvalidPath
	}
	if strings.ContainsFunc(p, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
		return ErrInvalidPath
	}
	if p != Norm(p) {
		return ErrInvalidPath
	}
	if p == ".." || strings.HasPrefix(p, "../") {
		return ErrInvalidPath
	}
	return nil
}

// Host converts a portable path back into host separators, suitable for
// joining onto a local root directory.
func Host(p string) string {
	return filepath.FromSlash(p)
}

// Parent returns the portable parent of p, or "" for top-level paths.
func Parent(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// Base returns the last segment of p.
func Base(p string) string {
	return path.Base(p)
}

// Split returns the ordered segments of a portable path.
func Split(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
