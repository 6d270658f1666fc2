package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileServer(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	srv := newFileServer(t, map[string]string{"m.txt": "meta-bytes"})
	c := New(srv.URL)

	b, err := c.Fetch(context.Background(), "m.txt")
	require.NoError(t, err)
	assert.Equal(t, "meta-bytes", string(b))
}

func TestFetchNotFound(t *testing.T) {
	srv := newFileServer(t, nil)
	c := New(srv.URL)

	_, err := c.Fetch(context.Background(), "missing.txt")
	assert.ErrorIs(t, err, ErrNotFoundUpstream)
}

func TestDownloadToFull(t *testing.T) {
	srv := newFileServer(t, map[string]string{"a/b.txt": "0123456789"})
	c := New(srv.URL)

	dest := filepath.Join(t.TempDir(), "b.txt")
	n, err := c.DownloadTo(context.Background(), "a/b.txt", dest, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)

	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(b))
}

func TestDownloadToResume(t *testing.T) {
	srv := newFileServer(t, map[string]string{"f.txt": "0123456789"})
	c := New(srv.URL)

	dest := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(dest, []byte("0123"), 0o644))

	n, err := c.DownloadTo(context.Background(), "f.txt", dest, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 6, n, "only the missing suffix travels")

	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(b))
}

func TestDownloadToRangePastEndRestarts(t *testing.T) {
	srv := newFileServer(t, map[string]string{"f.txt": "0123456789"})
	c := New(srv.URL)

	dest := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(dest, []byte("stale-partial-longer-than-origin"), 0o644))

	_, err := c.DownloadTo(context.Background(), "f.txt", dest, 32)
	require.NoError(t, err)

	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(b))
}

func TestDownloadToNotFound(t *testing.T) {
	srv := newFileServer(t, nil)
	c := New(srv.URL)

	dest := filepath.Join(t.TempDir(), "x.txt")
	_, err := c.DownloadTo(context.Background(), "x.txt", dest, 0)
	assert.ErrorIs(t, err, ErrNotFoundUpstream)
}

func TestURLEscaping(t *testing.T) {
	srv := newFileServer(t, map[string]string{"dir with space/file name.txt": "ok"})
	c := New(srv.URL)

	b, err := c.Fetch(context.Background(), "dir with space/file name.txt")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(b))
}
