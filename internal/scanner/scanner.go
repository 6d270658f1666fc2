// Package scanner performs the full reconciliation pass: compare the
// change log against the live tree and emit the minimal set of add/remove
// operations. Used for first-time population and to heal drift that
// incremental watching missed.
package scanner

import (
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/treemirror/treemirror/internal/changelog"
	"github.com/treemirror/treemirror/internal/ignore"
	"github.com/treemirror/treemirror/internal/pathutil"
	"github.com/treemirror/treemirror/internal/store"
)

// Scanner reconciles one tree against its change log.
type Scanner struct {
	local  *store.Local
	log    *changelog.ChangeLog
	ignore *ignore.List
}

// New creates a Scanner over the tree rooted at local.
func New(local *store.Local, log *changelog.ChangeLog, ign *ignore.List) *Scanner {
	if ign == nil {
		ign = ignore.Default()
	}
	return &Scanner{local: local, log: log, ignore: ign}
}

// Result summarizes one reconciliation pass.
type Result struct {
	Added   int
	Removed int
	Took    time.Duration
}

// Scan walks the live tree, computes live-minus-tracked (adds) and
// tracked-minus-live (removes) over normalized paths, applies all removes
// then all adds, and dumps the change log. Adds are applied in discovery
// order.
func (s *Scanner) Scan() (Result, error) {
	tstart := time.Now()

	live := mapset.NewThreadUnsafeSet[string]()
	var discovered []string
	err := s.local.Walk(func(rel string, info fs.FileInfo) error {
		if s.ignore.Match(rel) {
			return nil
		}
		if pathutil.Validate(rel) != nil {
			// name cannot be recorded in the log; leave the file alone
			slog.Warn("scanner: skipping unrepresentable name", "path", rel)
			return nil
		}
		live.Add(rel)
		discovered = append(discovered, rel)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("scanner: walk: %w", err)
	}

	tracked := mapset.NewThreadUnsafeSet[string]()
	for path := range s.log.State() {
		tracked.Add(path)
	}

	var res Result
	for path := range tracked.Difference(live).Iter() {
		if s.log.Remove(path) {
			res.Removed++
		}
	}
	for _, path := range discovered {
		if tracked.Contains(path) {
			continue
		}
		d, size, err := s.local.Digest(path)
		if err != nil {
			// file vanished mid-scan; the next pass picks it up
			slog.Warn("scanner: hash failed", "path", path, "error", err)
			continue
		}
		appended, err := s.log.Add(path, d, size)
		if err != nil {
			return res, err
		}
		if appended {
			res.Added++
		}
	}

	if err := s.log.Dump(); err != nil {
		return res, err
	}

	res.Took = time.Since(tstart)
	if res.Added > 0 || res.Removed > 0 {
		slog.Info("scan", "root", s.local.Root(), "added", res.Added, "removed", res.Removed, "took", res.Took)
	}
	return res, nil
}
