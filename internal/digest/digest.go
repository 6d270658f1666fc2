// Package digest provides the content hash used as the sole identity and
// integrity check for file bytes, plus its canonical hex text form.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Size is the digest length in bytes.
const Size = sha256.Size

// Digest is a fixed-length SHA-256 content hash. Two digests compare equal
// iff the underlying byte sequences are equal with overwhelming probability.
type Digest [Size]byte

// Sum returns the digest of b.
func Sum(b []byte) Digest {
	return Digest(sha256.Sum256(b))
}

// Parse decodes the canonical lowercase-hex form.
func Parse(s string) (Digest, error) {
	var d Digest
	if len(s) != hex.EncodedLen(Size) {
		return d, fmt.Errorf("digest: bad length %d", len(s))
	}
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return d, fmt.Errorf("digest: %w", err)
	}
	return d, nil
}

// String returns the canonical lowercase-hex form.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d is the zero digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// HashReader consumes r and returns its digest and byte count.
func HashReader(r io.Reader) (Digest, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return Digest{}, 0, err
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d, n, nil
}

// HashFile computes the digest and size of the file at path.
func HashFile(path string) (Digest, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, 0, err
	}
	defer f.Close()
	return HashReader(f)
}
