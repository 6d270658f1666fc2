package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/treemirror/treemirror/internal/changelog"
)

// Update pulls a fresh change log snapshot from the origin: it downloads
// the meta/log pair into scoped temporary files, cross-verifies and
// replays them, and only on success atomically replaces the local pair,
// reloads the change log, swaps the snapshot reference, resets
// verification state and runs Repair. Any failure leaves the previously
// committed pair byte-for-byte untouched; the temporaries are always
// removed.
func (c *Cache) Update(ctx context.Context) error {
	// same filesystem as the committed pair so the renames stay atomic
	tmpDir, err := os.MkdirTemp(c.local.Root(), ".update-*")
	if err != nil {
		return fmt.Errorf("cache: update: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	tmpMeta := filepath.Join(tmpDir, changelog.MetaFileName)
	tmpLog := filepath.Join(tmpDir, changelog.LogFileName)

	metaBytes, err := c.origin.Fetch(ctx, changelog.MetaFileName)
	if err != nil {
		return fmt.Errorf("cache: update meta: %w", err)
	}
	if err := os.WriteFile(tmpMeta, metaBytes, 0o644); err != nil {
		return fmt.Errorf("cache: update: %w", err)
	}

	logBytes, err := c.origin.Fetch(ctx, changelog.LogFileName)
	if err != nil {
		return fmt.Errorf("cache: update log: %w", err)
	}
	if err := os.WriteFile(tmpLog, logBytes, 0o644); err != nil {
		return fmt.Errorf("cache: update: %w", err)
	}

	meta, err := changelog.VerifyPair(tmpMeta, tmpLog)
	if err != nil {
		return fmt.Errorf("cache: update: downloaded pair: %w", err)
	}

	// replay before commit: VerifyPair checks bytes only, so a log that
	// hashes correctly but does not parse must be rejected while the
	// committed pair is still intact
	if err := changelog.New(tmpDir).Load(); err != nil {
		return fmt.Errorf("cache: update: downloaded pair: %w", err)
	}

	if cur := c.snapshot().Revision(); meta.Revision < cur {
		slog.Warn("cache: origin revision went backwards", "current", cur, "origin", meta.Revision)
	}

	// commit: log first, meta last, so a crash in between still leaves a
	// loadable prior meta paired with a mismatching log that Load rejects
	// rather than silently accepting
	root := c.local.Root()
	if err := os.Rename(tmpLog, filepath.Join(root, changelog.LogFileName)); err != nil {
		return fmt.Errorf("cache: update commit log: %w", err)
	}
	if err := os.Rename(tmpMeta, filepath.Join(root, changelog.MetaFileName)); err != nil {
		return fmt.Errorf("cache: update commit meta: %w", err)
	}

	fresh := changelog.New(root)
	if err := fresh.Load(); err != nil {
		return fmt.Errorf("cache: update reload: %w", err)
	}

	c.mu.Lock()
	c.log = fresh
	c.verified = make(map[string]struct{})
	c.mu.Unlock()

	slog.Info("cache update", "revision", meta.Revision, "tracked", fresh.Len())
	return c.Repair()
}
