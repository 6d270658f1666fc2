package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/treemirror/treemirror/internal/changelog"
	"github.com/treemirror/treemirror/internal/digest"
	"github.com/treemirror/treemirror/internal/pathutil"
)

// Get makes path locally present and verified, downloading from the origin
// only when the cached bytes do not match the recorded (digest, size)
// pair. With trustHint set, a path already verified since the last Update
// is accepted without recomputing its digest. Concurrent calls for the
// same path are coalesced into a single fetch.
func (c *Cache) Get(ctx context.Context, path string, trustHint bool) error {
	path = pathutil.Norm(path)
	if err := pathutil.Validate(path); err != nil {
		return err
	}

	ref, ok := c.snapshot().Lookup(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotTracked, path)
	}

	_, err, _ := c.fetch.Do(path, func() (any, error) {
		return nil, c.ensure(ctx, path, ref, trustHint)
	})
	return err
}

func (c *Cache) ensure(ctx context.Context, path string, ref changelog.FileRef, trustHint bool) error {
	if c.local.Exists(path) {
		if trustHint && c.isVerified(path) {
			return nil
		}
		if c.verifyLocal(path, ref) == nil {
			return nil
		}
	}

	err := c.fetchAndVerify(ctx, path, ref)
	if err == nil {
		return nil
	}
	var mismatch *digest.Mismatch
	if !errors.As(err, &mismatch) {
		return err
	}

	// verification failed after a download: discard the local bytes and
	// try one fresh fetch before surfacing the mismatch
	if err := c.local.Remove(path); err != nil {
		return err
	}
	return c.fetchAndVerify(ctx, path, ref)
}

// fetchAndVerify downloads path (resuming a partial file) and checks the
// result against ref.
func (c *Cache) fetchAndVerify(ctx context.Context, path string, ref changelog.FileRef) error {
	if err := c.local.MkdirParent(path); err != nil {
		return err
	}

	offset := c.local.Size(path)
	if offset >= ref.Size {
		// full-size or oversized bytes that failed verification cannot be
		// resumed, start over
		if err := c.local.Remove(path); err != nil {
			return err
		}
		offset = 0
	}

	dest, err := c.local.Abs(path)
	if err != nil {
		return err
	}

	tstart := time.Now()
	n, err := c.origin.DownloadTo(ctx, path, dest, offset)
	if err != nil {
		return err
	}
	slog.Debug("cache fetch", "path", path, "offset", offset,
		"received", humanize.Bytes(uint64(n)), "took", time.Since(tstart))

	return c.verifyLocal(path, ref)
}

// verifyLocal recomputes the digest/size of the cached file and compares
// it against the recorded pair, updating the verification mark.
func (c *Cache) verifyLocal(path string, ref changelog.FileRef) error {
	d, size, err := c.local.Digest(path)
	if err != nil {
		c.clearVerified(path)
		return err
	}
	if d != ref.Digest || size != ref.Size {
		c.clearVerified(path)
		return &digest.Mismatch{
			Expected:     ref.Digest,
			Actual:       d,
			ExpectedSize: ref.Size,
			ActualSize:   size,
		}
	}
	c.setVerified(path)
	return nil
}
