// Package transport is the origin collaborator: an HTTP(S) client that
// fetches files relative to a base location, with byte-range resume and a
// distinct "not found upstream" error.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/imroc/req/v3"

	"github.com/treemirror/treemirror/internal/pathutil"
	"github.com/treemirror/treemirror/internal/version"
)

// ErrNotFoundUpstream means the origin does not have the requested file.
// Surfaced distinctly so callers can decide to skip instead of abort.
var ErrNotFoundUpstream = errors.New("transport: not found upstream")

// Error is any transport failure other than not-found. Retryable by the
// caller.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport: %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("transport: %s: status %d", e.URL, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Client fetches files from one origin.
type Client struct {
	http   *req.Client
	origin string
}

// New creates a Client for the origin base URL.
func New(origin string) *Client {
	c := req.C().
		SetBaseURL(strings.TrimRight(origin, "/")).
		SetUserAgent("treemirror/" + version.Version).
		SetTimeout(5 * time.Minute)

	return &Client{http: c, origin: origin}
}

// Origin returns the configured base URL.
func (c *Client) Origin() string {
	return c.origin
}

// urlFor escapes each segment of a portable path for use in a request URL.
func urlFor(rel string) string {
	segs := pathutil.Split(rel)
	escaped := make([]string, len(segs))
	for i, s := range segs {
		escaped[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(escaped, "/")
}

// Fetch retrieves a whole file into memory. Intended for the small
// meta/log pair, not for tree content.
func (c *Client) Fetch(ctx context.Context, rel string) ([]byte, error) {
	u := urlFor(rel)
	resp, err := c.http.R().SetContext(ctx).Get(u)
	if err != nil {
		return nil, &Error{URL: u, Err: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFoundUpstream, rel)
	}
	if resp.IsErrorState() {
		return nil, &Error{URL: u, StatusCode: resp.StatusCode}
	}
	return resp.Bytes(), nil
}

// DownloadTo streams a file from the origin into destPath. When offset is
// positive the request carries a byte-range header and the local partial
// bytes are kept; a 200 response (origin ignored the range) or 416 (local
// partial is already past the end, e.g. after an upstream change) restarts
// from byte zero. Returns the number of bytes written by this call.
func (c *Client) DownloadTo(ctx context.Context, rel, destPath string, offset int64) (int64, error) {
	u := urlFor(rel)

	r := c.http.R().SetContext(ctx).DisableAutoReadResponse()
	if offset > 0 {
		r.SetHeader("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := r.Get(u)
	if err != nil {
		return 0, &Error{URL: u, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		offset = 0
	case http.StatusPartialContent:
		// append to the local partial bytes
	case http.StatusNotFound:
		return 0, fmt.Errorf("%w: %s", ErrNotFoundUpstream, rel)
	case http.StatusRequestedRangeNotSatisfiable:
		if offset == 0 {
			return 0, &Error{URL: u, StatusCode: resp.StatusCode}
		}
		return c.DownloadTo(ctx, rel, destPath, 0)
	default:
		return 0, &Error{URL: u, StatusCode: resp.StatusCode}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if offset > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(destPath, flags, 0o644)
	if err != nil {
		return 0, fmt.Errorf("transport: open %q: %w", destPath, err)
	}

	n, copyErr := io.Copy(f, resp.Body)
	if err := f.Close(); err != nil && copyErr == nil {
		copyErr = err
	}
	if copyErr != nil {
		// keep the partial bytes for the next resume attempt
		if errors.Is(copyErr, context.Canceled) || errors.Is(copyErr, context.DeadlineExceeded) {
			return n, copyErr
		}
		return n, &Error{URL: u, Err: copyErr}
	}
	return n, nil
}
