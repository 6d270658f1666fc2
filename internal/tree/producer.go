// Package tree runs the producer side of a synchronized tree: it owns the
// authoritative change log for one root directory and keeps it current
// through live watching plus periodic full reconciliation.
package tree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/treemirror/treemirror/internal/changelog"
	"github.com/treemirror/treemirror/internal/ignore"
	"github.com/treemirror/treemirror/internal/scanner"
	"github.com/treemirror/treemirror/internal/store"
	"github.com/treemirror/treemirror/internal/watcher"
)

// LockFileName guards a tree against a second producer instance.
const LockFileName = ".treemirror.lock"

const defaultScanInterval = 30 * time.Second

// ErrTreeLocked means another producer already owns this tree. The log is
// single-writer: two producers appending to one pair would corrupt it.
var ErrTreeLocked = errors.New("tree: locked by another producer")

// Producer maintains the change log of one tree.
type Producer struct {
	local        *store.Local
	log          *changelog.ChangeLog
	scanner      *scanner.Scanner
	bridge       *watcher.Bridge
	flock        *flock.Flock
	scanInterval time.Duration
	wg           sync.WaitGroup
}

// NewProducer creates a Producer for the tree rooted at dir. Extra
// gitignore-style patterns extend the built-in ignore list.
func NewProducer(dir string, scanInterval time.Duration, extraIgnores ...string) (*Producer, error) {
	local, err := store.NewLocal(dir)
	if err != nil {
		return nil, err
	}
	if scanInterval <= 0 {
		scanInterval = defaultScanInterval
	}

	ign := ignore.Default()
	if len(extraIgnores) > 0 {
		ign = ignore.WithExtra(extraIgnores...)
	}

	log := changelog.New(local.Root())
	return &Producer{
		local:        local,
		log:          log,
		scanner:      scanner.New(local, log, ign),
		bridge:       watcher.NewBridge(local, log, ign),
		flock:        flock.New(filepath.Join(local.Root(), LockFileName)),
		scanInterval: scanInterval,
	}, nil
}

// Log returns the producer's change log.
func (p *Producer) Log() *changelog.ChangeLog {
	return p.log
}

// Start acquires the tree lock, adopts or establishes the on-disk pair,
// runs one full scan, then watches for live changes with periodic rescans
// until ctx is cancelled.
func (p *Producer) Start(ctx context.Context) error {
	locked, err := p.flock.TryLock()
	if err != nil {
		return fmt.Errorf("tree: lock: %w", err)
	}
	if !locked {
		return ErrTreeLocked
	}

	if err := p.log.Create(); err != nil {
		return err
	}

	slog.Info("producer start", "root", p.local.Root(), "tracked", p.log.Len(), "revision", p.log.Revision())
	if _, err := p.scanner.Scan(); err != nil {
		return err
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("watcher failed", "error", err)
		}
	}()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		// timer instead of ticker so slow scans don't queue up
		timer := time.NewTimer(p.scanInterval)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				if _, err := p.scanner.Scan(); err != nil {
					slog.Error("periodic scan failed", "error", err)
				}
				timer.Reset(p.scanInterval)
			}
		}
	}()

	return nil
}

// Wait blocks until the background goroutines exit.
func (p *Producer) Wait() {
	p.wg.Wait()
}

// Stop releases the tree lock.
func (p *Producer) Stop() error {
	if !p.flock.Locked() {
		return nil
	}
	if err := p.flock.Unlock(); err != nil {
		return fmt.Errorf("tree: unlock: %w", err)
	}
	slog.Info("producer stop", "root", p.local.Root())
	return nil
}
