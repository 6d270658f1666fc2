package digest

import "fmt"

// Mismatch reports that the bytes on disk (or fetched from an origin) do
// not match a recorded digest/size pair. It renders a human-readable delta
// of what was expected versus what was found.
type Mismatch struct {
	Expected     Digest
	Actual       Digest
	ExpectedSize int64
	ActualSize   int64
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("digest mismatch: expected %s (%d bytes), got %s (%d bytes)",
		m.Expected, m.ExpectedSize, m.Actual, m.ActualSize)
}
