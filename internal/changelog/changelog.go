// Package changelog maintains the authoritative record of which files
// exist in a tree. The in-memory reconciled state is a path -> (digest,
// size) map derived by folding an ordered Add/Remove entry sequence; on
// disk the sequence lives in an append-only log file paired with a meta
// record that carries the log's revision, size and digest for integrity
// checking.
package changelog

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/treemirror/treemirror/internal/digest"
	"github.com/treemirror/treemirror/internal/pathutil"
)

// Reserved filenames for the on-disk pair. Both are excluded from tree
// scans, watch processing and existence queries over the tree content.
const (
	LogFileName  = ".treemirror.log"
	MetaFileName = ".treemirror.meta"
)

var (
	// ErrInconsistentLog means the in-memory entry sequence is no longer a
	// superset-with-same-prefix of the last dumped sequence. This indicates
	// a logic or concurrency bug and is never auto-repaired.
	ErrInconsistentLog = errors.New("changelog: in-memory history diverged from last dump")

	// ErrIncompletePair means exactly one of the log/meta files exists.
	ErrIncompletePair = errors.New("changelog: incomplete log/meta pair on disk")
)

// ChangeLog is the reconciled path -> (digest, size) mapping for one tree,
// backed by the append-only log/meta pair in dir. A single mutex makes
// mutation and Dump mutually exclusive, so the unwritten suffix computed by
// Dump always reflects a consistent snapshot.
type ChangeLog struct {
	mu       sync.Mutex
	dir      string
	entries  []Entry
	state    map[string]FileRef
	dumped   []Entry
	revision uint64
}

// New creates an empty ChangeLog whose on-disk pair lives in dir.
func New(dir string) *ChangeLog {
	return &ChangeLog{
		dir:   dir,
		state: make(map[string]FileRef),
	}
}

// LogPath returns the host path of the append-only log file.
func (c *ChangeLog) LogPath() string {
	return filepath.Join(c.dir, LogFileName)
}

// MetaPath returns the host path of the meta record file.
func (c *ChangeLog) MetaPath() string {
	return filepath.Join(c.dir, MetaFileName)
}

// Add records that path now maps to (d, size). Re-adding an identical
// mapping is a no-op and emits no entry. Returns true when an entry was
// appended.
func (c *ChangeLog) Add(path string, d digest.Digest, size int64) (bool, error) {
	path = pathutil.Norm(path)
	if err := pathutil.Validate(path); err != nil {
		return false, fmt.Errorf("changelog: add %q: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ref := FileRef{Digest: d, Size: size}
	if cur, ok := c.state[path]; ok && cur == ref {
		return false, nil
	}
	c.entries = append(c.entries, Entry{Op: OpAdd, Path: path, Digest: d, Size: size})
	c.state[path] = ref
	return true, nil
}

// Remove deletes path from the reconciled state. Removing an absent path
// is a no-op. Returns true when an entry was appended.
func (c *ChangeLog) Remove(path string) bool {
	path = pathutil.Norm(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.state[path]; !ok {
		return false
	}
	c.entries = append(c.entries, Entry{Op: OpRemove, Path: path})
	delete(c.state, path)
	return true
}

// Lookup returns the (digest, size) pair for a normalized path.
func (c *ChangeLog) Lookup(path string) (FileRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref, ok := c.state[pathutil.Norm(path)]
	return ref, ok
}

// State returns a copy of the reconciled state map.
func (c *ChangeLog) State() map[string]FileRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := make(map[string]FileRef, len(c.state))
	for p, ref := range c.state {
		state[p] = ref
	}
	return state
}

// Len returns the number of tracked paths.
func (c *ChangeLog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.state)
}

// Revision returns the revision recorded by the last Dump or Load.
func (c *ChangeLog) Revision() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision
}

// Dump appends the not-yet-persisted entry suffix to the log file, then
// rewrites the meta record to match the new log bytes. History is never
// rewritten: if the in-memory sequence is not a superset-with-same-prefix
// of the last dumped sequence, Dump fails with ErrInconsistentLog. The meta
// record is written last so a crash between the two writes leaves a
// consistent prior state recoverable by Load.
func (c *ChangeLog) Dump() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) < len(c.dumped) {
		return fmt.Errorf("%w: %d entries in memory, %d dumped", ErrInconsistentLog, len(c.entries), len(c.dumped))
	}
	for i := range c.dumped {
		if c.entries[i] != c.dumped[i] {
			return fmt.Errorf("%w: entry %d rewritten", ErrInconsistentLog, i)
		}
	}

	suffix := c.entries[len(c.dumped):]
	if len(suffix) == 0 {
		// Nothing new. Still establish the pair on first use.
		if _, err := os.Stat(c.MetaPath()); err == nil {
			return nil
		}
	}

	f, err := os.OpenFile(c.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("changelog: open log: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, e := range suffix {
		if _, err := w.WriteString(e.encode() + "\n"); err != nil {
			f.Close()
			return fmt.Errorf("changelog: append log: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("changelog: flush log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("changelog: close log: %w", err)
	}

	logDigest, logSize, err := digest.HashFile(c.LogPath())
	if err != nil {
		return fmt.Errorf("changelog: hash log: %w", err)
	}

	if len(suffix) > 0 {
		c.revision++
	}
	meta := Meta{Revision: c.revision, LogSize: logSize, LogDigest: logDigest}
	if err := writeFileAtomic(c.MetaPath(), meta.encode()); err != nil {
		return fmt.Errorf("changelog: write meta: %w", err)
	}

	c.dumped = slices.Clone(c.entries)
	slog.Debug("changelog dump", "dir", c.dir, "appended", len(suffix), "revision", c.revision)
	return nil
}

// Load replaces the in-memory state with the on-disk pair. The meta record
// is verified against the actual log bytes first; any mismatch surfaces as
// a digest.Mismatch error and nothing is loaded. A missing pair leaves an
// empty state for first use.
func (c *ChangeLog) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	logExists := fileExists(c.LogPath())
	metaExists := fileExists(c.MetaPath())

	if !logExists && !metaExists {
		c.entries = nil
		c.dumped = nil
		c.state = make(map[string]FileRef)
		c.revision = 0
		return nil
	}
	if logExists != metaExists {
		return fmt.Errorf("%w: log=%v meta=%v", ErrIncompletePair, logExists, metaExists)
	}

	meta, err := VerifyPair(c.MetaPath(), c.LogPath())
	if err != nil {
		return fmt.Errorf("changelog: load %s: %w", c.LogPath(), err)
	}

	f, err := os.Open(c.LogPath())
	if err != nil {
		return fmt.Errorf("changelog: open log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	state := make(map[string]FileRef)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		e, err := parseEntry(line)
		if err != nil {
			return err
		}
		entries = append(entries, e)
		switch e.Op {
		case OpAdd:
			state[e.Path] = FileRef{Digest: e.Digest, Size: e.Size}
		case OpRemove:
			delete(state, e.Path)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("changelog: read log: %w", err)
	}

	c.entries = entries
	c.dumped = slices.Clone(entries)
	c.state = state
	c.revision = meta.Revision
	slog.Debug("changelog load", "dir", c.dir, "entries", len(entries), "tracked", len(state), "revision", meta.Revision)
	return nil
}

// Create adopts existing on-disk state when present, establishing the pair
// otherwise: a Load followed by a Dump.
func (c *ChangeLog) Create() error {
	if err := c.Load(); err != nil {
		return err
	}
	return c.Dump()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// writeFileAtomic writes b to a sibling temp file and renames it over path.
func writeFileAtomic(path string, b []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
