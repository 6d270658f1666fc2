package cache

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/treemirror/treemirror/internal/changelog"
)

// Repair brings the local cache in line with the recorded state: it
// deletes cached files marked online-only, cached files no longer tracked,
// and cached files whose bytes no longer match the recorded digest/size
// pair, then prunes empty directories bottom-up. Deleted files become
// eligible for re-fetch; the log/meta pair itself is never touched.
func (c *Cache) Repair() error {
	state := c.snapshot().State()

	var cached []string
	err := c.local.Walk(func(rel string, info fs.FileInfo) error {
		if rel == changelog.LogFileName || rel == changelog.MetaFileName {
			return nil
		}
		if strings.HasPrefix(rel, ".update-") {
			// an Update in flight owns these
			return nil
		}
		cached = append(cached, rel)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache: repair walk: %w", err)
	}

	removed := 0
	drop := func(rel, reason string) error {
		if err := c.local.Remove(rel); err != nil {
			return err
		}
		c.clearVerified(rel)
		removed++
		slog.Debug("cache repair", "path", rel, "reason", reason)
		return nil
	}

	for _, rel := range cached {
		ref, tracked := state[rel]
		switch {
		case c.online.Contains(rel):
			if err := drop(rel, "online-only"); err != nil {
				return err
			}
		case !tracked:
			if err := drop(rel, "untracked"); err != nil {
				return err
			}
		default:
			d, size, err := c.local.Digest(rel)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return err
			}
			if d != ref.Digest || size != ref.Size {
				if err := drop(rel, "mismatch"); err != nil {
					return err
				}
			}
		}
	}

	if err := c.pruneEmptyDirs(); err != nil {
		return err
	}

	if removed > 0 {
		slog.Info("cache repair", "removed", removed)
	}
	return nil
}

// pruneEmptyDirs removes now-empty directories bottom-up, repeating until
// a pass removes nothing.
func (c *Cache) pruneEmptyDirs() error {
	root := c.local.Root()
	for {
		var dirs []string
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			if d.IsDir() && path != root {
				if strings.HasPrefix(d.Name(), ".update-") {
					return filepath.SkipDir
				}
				dirs = append(dirs, path)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("cache: prune: %w", err)
		}

		pruned := 0
		// deepest first
		for i := len(dirs) - 1; i >= 0; i-- {
			entries, err := os.ReadDir(dirs[i])
			if err != nil || len(entries) > 0 {
				continue
			}
			if os.Remove(dirs[i]) == nil {
				pruned++
			}
		}
		if pruned == 0 {
			return nil
		}
	}
}
