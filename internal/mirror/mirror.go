// Package mirror runs the consumer side: a remote cache kept current by a
// periodic update loop, exposing the read-only filesystem surface.
package mirror

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/treemirror/treemirror/internal/cache"
	"github.com/treemirror/treemirror/internal/store"
	"github.com/treemirror/treemirror/internal/transport"
)

const defaultUpdateInterval = 30 * time.Second

// Mirror keeps a local read-through cache of one origin tree.
type Mirror struct {
	*cache.Cache

	updateInterval time.Duration
	wg             sync.WaitGroup
}

// New creates a Mirror of origin in the local directory dir.
func New(dir, origin string, updateInterval time.Duration) (*Mirror, error) {
	local, err := store.NewLocal(dir)
	if err != nil {
		return nil, err
	}
	if updateInterval <= 0 {
		updateInterval = defaultUpdateInterval
	}
	return &Mirror{
		Cache:          cache.New(local, transport.New(origin)),
		updateInterval: updateInterval,
	}, nil
}

// Start pulls an initial snapshot and then refreshes it periodically until
// ctx is cancelled. An unreachable origin at boot is not fatal: the mirror
// serves whatever was committed before (or nothing) until a refresh
// succeeds. A failed refresh keeps serving the last good snapshot.
func (m *Mirror) Start(ctx context.Context) error {
	if err := m.Update(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		slog.Warn("mirror: initial update failed, retrying on the refresh interval", "error", err)
	}
	slog.Info("mirror start", "root", m.Local().Root(), "revision", m.Revision())

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		timer := time.NewTimer(m.updateInterval)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				if err := m.Update(ctx); err != nil && !errors.Is(err, context.Canceled) {
					slog.Error("mirror update failed", "error", err)
				}
				timer.Reset(m.updateInterval)
			}
		}
	}()
	return nil
}

// Wait blocks until the update loop exits.
func (m *Mirror) Wait() {
	m.wg.Wait()
}
