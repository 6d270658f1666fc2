// Package watcher bridges live filesystem change notifications into
// incremental change log updates, persisting after each batch.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/rjeczalik/notify"

	"github.com/treemirror/treemirror/internal/changelog"
	"github.com/treemirror/treemirror/internal/ignore"
	"github.com/treemirror/treemirror/internal/pathutil"
	"github.com/treemirror/treemirror/internal/store"
)

// handlers is the dispatch table for the closed event set. A content
// change recomputes the digest and goes through the same add path as a
// create: Add is idempotent, so an untouched file emits no entry.
var handlers = map[Kind]func(*Bridge, Event) error{
	Created:    (*Bridge).applyAdd,
	Changed:    (*Bridge).applyAdd,
	CopiedFrom: (*Bridge).applyAdd,
	Deleted:    (*Bridge).applyRemove,
	MovedTo:    (*Bridge).applyMove,
}

// Bridge consumes filesystem events for one tree and applies them to its
// change log. Event processing is strictly sequential: applying a remove
// before its matching add would corrupt state.
type Bridge struct {
	local    *store.Local
	log      *changelog.ChangeLog
	ignore   *ignore.List
	notifyCh chan notify.EventInfo
}

// NewBridge creates a Bridge over the tree rooted at local.
func NewBridge(local *store.Local, log *changelog.ChangeLog, ign *ignore.List) *Bridge {
	if ign == nil {
		ign = ignore.Default()
	}
	return &Bridge{
		local:    local,
		log:      log,
		ignore:   ign,
		notifyCh: make(chan notify.EventInfo, 128),
	}
}

// Run watches the tree recursively and processes events until ctx is
// cancelled. The change log is dumped once per drained batch.
func (b *Bridge) Run(ctx context.Context) error {
	recursive := filepath.Join(b.local.Root(), "...")
	if err := notify.Watch(recursive, b.notifyCh, notify.Create, notify.Remove, notify.Write, notify.Rename); err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer notify.Stop(b.notifyCh)
	slog.Info("watcher start", "root", b.local.Root())

	for {
		select {
		case <-ctx.Done():
			slog.Info("watcher stop", "root", b.local.Root())
			return ctx.Err()
		case ei := <-b.notifyCh:
			batch := []Event{}
			if ev, ok := b.translate(ei); ok {
				batch = append(batch, ev)
			}
			// drain whatever else is already queued
		drain:
			for {
				select {
				case ei := <-b.notifyCh:
					if ev, ok := b.translate(ei); ok {
						batch = append(batch, ev)
					}
				default:
					break drain
				}
			}
			if err := b.ApplyBatch(batch); err != nil {
				return err
			}
		}
	}
}

// translate maps a notify event onto the closed event set. The generic
// notify surface cannot pair rename cookies or detect copies, so it only
// produces Created, Changed and Deleted; MovedTo and CopiedFrom come from
// richer sources via ApplyBatch.
func (b *Bridge) translate(ei notify.EventInfo) (Event, bool) {
	rel, err := filepath.Rel(b.local.Root(), ei.Path())
	if err != nil {
		return Event{}, false
	}
	rel = pathutil.Norm(rel)
	if pathutil.Validate(rel) != nil || b.ignore.Match(rel) {
		return Event{}, false
	}

	switch ei.Event() {
	case notify.Create:
		if b.local.IsDir(rel) {
			return Event{}, false
		}
		return Event{Kind: Created, Path: rel}, true
	case notify.Write:
		return Event{Kind: Changed, Path: rel}, true
	case notify.Remove, notify.Rename:
		return Event{Kind: Deleted, Path: rel}, true
	}
	return Event{}, false
}

// ApplyBatch applies events in order through the handler table, then dumps
// the change log once.
func (b *Bridge) ApplyBatch(batch []Event) error {
	if len(batch) == 0 {
		return nil
	}
	for _, ev := range batch {
		handler, ok := handlers[ev.Kind]
		if !ok {
			slog.Warn("watcher: unknown event kind", "event", ev)
			continue
		}
		if err := handler(b, ev); err != nil {
			return err
		}
	}
	return b.log.Dump()
}

// Apply applies a single event and persists the result.
func (b *Bridge) Apply(ev Event) error {
	return b.ApplyBatch([]Event{ev})
}

func (b *Bridge) applyAdd(ev Event) error {
	if b.ignore.Match(ev.Path) || b.local.IsDir(ev.Path) {
		return nil
	}
	d, size, err := b.local.Digest(ev.Path)
	if err != nil {
		// the file may already be gone again; the scanner heals this
		slog.Debug("watcher: hash failed", "event", ev, "error", err)
		return nil
	}
	appended, err := b.log.Add(ev.Path, d, size)
	if err != nil {
		return err
	}
	if appended {
		slog.Debug("watcher apply", "event", ev, "size", size)
	}
	return nil
}

func (b *Bridge) applyRemove(ev Event) error {
	if b.log.Remove(ev.Path) {
		slog.Debug("watcher apply", "event", ev)
	}
	return nil
}

func (b *Bridge) applyMove(ev Event) error {
	if err := b.applyAdd(ev); err != nil {
		return err
	}
	return b.applyRemove(Event{Kind: Deleted, Path: ev.From})
}
