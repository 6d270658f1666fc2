package watcher

import "fmt"

// Kind is the closed set of filesystem notification kinds the bridge
// understands.
type Kind int

const (
	Created Kind = iota
	Deleted
	Changed
	MovedTo
	CopiedFrom
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	case Changed:
		return "changed"
	case MovedTo:
		return "moved"
	case CopiedFrom:
		return "copied"
	}
	return "unknown"
}

// Event is one live filesystem change, addressed by portable relative
// paths. For MovedTo, From is the old location; for CopiedFrom, From is
// the copy source.
type Event struct {
	Kind Kind
	Path string
	From string
}

func (e Event) String() string {
	if e.From != "" {
		return fmt.Sprintf("%s %s -> %s", e.Kind, e.From, e.Path)
	}
	return fmt.Sprintf("%s %s", e.Kind, e.Path)
}
