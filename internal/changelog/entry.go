package changelog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/treemirror/treemirror/internal/digest"
)

// Op tags an Entry as an addition or a removal.
type Op int

const (
	OpAdd Op = iota
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	}
	return "unknown"
}

// Entry is the atomic unit of change: either Add(path, digest, size) or
// Remove(path). Entries are strictly ordered as produced; replaying them
// in order from empty state reconstructs the reconciled state map.
type Entry struct {
	Op     Op
	Path   string
	Digest digest.Digest
	Size   int64
}

// FileRef is the (digest, size) pair the reconciled state tracks per path.
type FileRef struct {
	Digest digest.Digest
	Size   int64
}

// encode renders an entry as one tab-separated log line (without newline).
func (e Entry) encode() string {
	switch e.Op {
	case OpAdd:
		return fmt.Sprintf("add\t%s\t%s\t%d", e.Path, e.Digest, e.Size)
	case OpRemove:
		return fmt.Sprintf("remove\t%s", e.Path)
	}
	return ""
}

// parseEntry decodes one log line.
func parseEntry(line string) (Entry, error) {
	fields := strings.Split(line, "\t")
	switch fields[0] {
	case "add":
		if len(fields) != 4 {
			return Entry{}, fmt.Errorf("changelog: malformed add entry %q", line)
		}
		d, err := digest.Parse(fields[2])
		if err != nil {
			return Entry{}, fmt.Errorf("changelog: entry %q: %w", line, err)
		}
		size, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return Entry{}, fmt.Errorf("changelog: entry %q: %w", line, err)
		}
		return Entry{Op: OpAdd, Path: fields[1], Digest: d, Size: size}, nil
	case "remove":
		if len(fields) != 2 {
			return Entry{}, fmt.Errorf("changelog: malformed remove entry %q", line)
		}
		return Entry{Op: OpRemove, Path: fields[1]}, nil
	}
	return Entry{}, fmt.Errorf("changelog: unknown entry tag %q", fields[0])
}
