package changelog

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/treemirror/treemirror/internal/digest"
)

// Meta describes the entire current log file: its revision counter and the
// digest/size of its full byte content. It exists purely for integrity
// verification, not for addressing individual entries.
type Meta struct {
	Revision  uint64
	LogSize   int64
	LogDigest digest.Digest
}

func (m Meta) encode() []byte {
	return []byte(fmt.Sprintf("meta\t%d\t%d\t%s\n", m.Revision, m.LogSize, m.LogDigest))
}

// ParseMeta decodes the single-line meta record.
func ParseMeta(b []byte) (Meta, error) {
	line := strings.TrimRight(string(b), "\n")
	fields := strings.Split(line, "\t")
	if len(fields) != 4 || fields[0] != "meta" {
		return Meta{}, fmt.Errorf("changelog: malformed meta record %q", line)
	}
	rev, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return Meta{}, fmt.Errorf("changelog: meta revision: %w", err)
	}
	size, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return Meta{}, fmt.Errorf("changelog: meta size: %w", err)
	}
	d, err := digest.Parse(fields[3])
	if err != nil {
		return Meta{}, fmt.Errorf("changelog: meta digest: %w", err)
	}
	return Meta{Revision: rev, LogSize: size, LogDigest: d}, nil
}

// ReadMeta loads and decodes a meta record file.
func ReadMeta(path string) (Meta, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Meta{}, err
	}
	return ParseMeta(b)
}

// VerifyPair reads the meta record at metaPath and checks that the log file
// at logPath matches its recorded digest and size byte for byte. It returns
// the meta record on success and a digest.Mismatch error otherwise.
func VerifyPair(metaPath, logPath string) (Meta, error) {
	meta, err := ReadMeta(metaPath)
	if err != nil {
		return Meta{}, err
	}
	d, size, err := digest.HashFile(logPath)
	if err != nil {
		return Meta{}, err
	}
	if d != meta.LogDigest || size != meta.LogSize {
		return Meta{}, &digest.Mismatch{
			Expected:     meta.LogDigest,
			Actual:       d,
			ExpectedSize: meta.LogSize,
			ActualSize:   size,
		}
	}
	return meta, nil
}
