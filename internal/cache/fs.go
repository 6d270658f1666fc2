package cache

import (
	"context"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/treemirror/treemirror/internal/pathutil"
)

// FileExists reports whether path is a tracked file or a directory prefix
// of one. No network access.
func (c *Cache) FileExists(path string) bool {
	path = pathutil.Norm(path)
	if path == "" {
		return true
	}
	state := c.snapshot().State()
	if _, ok := state[path]; ok {
		return true
	}
	prefix := path + "/"
	for tracked := range state {
		if strings.HasPrefix(tracked, prefix) {
			return true
		}
	}
	return false
}

// IsDirectory reports whether path is a directory, i.e. some tracked path
// lies strictly under it. No network access.
func (c *Cache) IsDirectory(path string) bool {
	path = pathutil.Norm(path)
	if path == "" {
		return true
	}
	prefix := path + "/"
	for tracked := range c.snapshot().State() {
		if strings.HasPrefix(tracked, prefix) {
			return true
		}
	}
	return false
}

// ReadDirectory lists the immediate children of path: base names of
// tracked files whose parent is path, plus intermediate directory names of
// deeper tracked paths. Sorted, deduplicated, no network access.
func (c *Cache) ReadDirectory(path string) []string {
	path = pathutil.Norm(path)
	prefix := ""
	if path != "" {
		prefix = path + "/"
	}

	seen := make(map[string]struct{})
	for tracked := range c.snapshot().State() {
		if !strings.HasPrefix(tracked, prefix) {
			continue
		}
		rest := strings.TrimPrefix(tracked, prefix)
		if rest == "" {
			continue
		}
		name, _, _ := strings.Cut(rest, "/")
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open ensures path is locally present and verified, fetching it from the
// origin if needed, then opens it from the local store. May block on
// network I/O.
func (c *Cache) Open(ctx context.Context, path string) (*os.File, error) {
	if err := c.Get(ctx, path, true); err != nil {
		return nil, err
	}
	return c.local.Open(path)
}

// Stat ensures path is locally present and verified, then stats it. May
// block on network I/O.
func (c *Cache) Stat(ctx context.Context, path string) (fs.FileInfo, error) {
	if err := c.Get(ctx, path, true); err != nil {
		return nil, err
	}
	return c.local.Stat(path)
}
