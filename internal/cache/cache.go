// Package cache implements the read-only, remote-backed virtual
// filesystem: file existence and listing resolve from the change log with
// no network access, file bytes are fetched lazily from the origin with
// resumable transfer and digest verification, and the local cache is
// repaired whenever recorded state and disk contents diverge.
package cache

import (
	"errors"
	"log/slog"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/singleflight"

	"github.com/treemirror/treemirror/internal/changelog"
	"github.com/treemirror/treemirror/internal/pathutil"
	"github.com/treemirror/treemirror/internal/store"
	"github.com/treemirror/treemirror/internal/transport"
)

// ErrNotTracked means the requested path is not in the reconciled state.
var ErrNotTracked = errors.New("cache: path not tracked")

// Cache composes a local store with an origin transport. It holds one
// replaceable change log snapshot: Update swaps the whole reference, so
// readers in flight keep a consistent view of the old state.
type Cache struct {
	local  *store.Local
	origin *transport.Client

	mu       sync.RWMutex
	log      *changelog.ChangeLog
	verified map[string]struct{}

	online mapset.Set[string]
	fetch  singleflight.Group
}

// New creates a Cache over the local directory, mirroring origin. An
// existing on-disk change log pair is adopted; a corrupt pair is discarded
// in favor of an empty state so the next Update can re-establish it.
func New(local *store.Local, origin *transport.Client) *Cache {
	log := changelog.New(local.Root())
	if err := log.Load(); err != nil {
		slog.Warn("cache: discarding unreadable change log", "error", err)
		log = changelog.New(local.Root())
	}
	return &Cache{
		local:    local,
		origin:   origin,
		log:      log,
		verified: make(map[string]struct{}),
		online:   mapset.NewSet[string](),
	}
}

// Local returns the underlying local store.
func (c *Cache) Local() *store.Local {
	return c.local
}

// Revision returns the revision of the current change log snapshot.
func (c *Cache) Revision() uint64 {
	return c.snapshot().Revision()
}

// MarkOnline flags a path as online-only: it is never kept in the local
// cache and the next Repair deletes any cached copy. Existence and read
// semantics are unaffected.
func (c *Cache) MarkOnline(path string) {
	c.online.Add(pathutil.Norm(path))
}

// snapshot returns the current change log reference.
func (c *Cache) snapshot() *changelog.ChangeLog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.log
}

func (c *Cache) isVerified(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.verified[path]
	return ok
}

func (c *Cache) setVerified(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verified[path] = struct{}{}
}

func (c *Cache) clearVerified(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.verified, path)
}
