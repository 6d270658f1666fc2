package mirror

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treemirror/treemirror/internal/changelog"
	"github.com/treemirror/treemirror/internal/scanner"
	"github.com/treemirror/treemirror/internal/store"
)

func publishOrigin(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	local, err := store.NewLocal(dir)
	require.NoError(t, err)
	_, err = scanner.New(local, changelog.New(dir), nil).Scan()
	require.NoError(t, err)

	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	t.Cleanup(srv.Close)
	return srv
}

func TestMirrorEndToEnd(t *testing.T) {
	srv := publishOrigin(t, map[string]string{
		"a.txt":     "hello",
		"b/c.txt":   "world",
		"b/d/e.txt": "!",
	})

	m, err := New(t.TempDir(), srv.URL, time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Start(ctx))

	assert.True(t, m.FileExists("b/c.txt"))
	assert.Equal(t, []string{"a.txt", "b"}, m.ReadDirectory(""))

	f, err := m.Open(ctx, "b/c.txt")
	require.NoError(t, err)
	b, err := io.ReadAll(f)
	require.NoError(t, err)
	f.Close()
	assert.Equal(t, "world", string(b))

	cancel()
	m.Wait()
}

func TestMirrorRecoversFromOriginOutageAtBoot(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("hello"), 0o644))
	local, err := store.NewLocal(srcDir)
	require.NoError(t, err)
	_, err = scanner.New(local, changelog.New(srcDir), nil).Scan()
	require.NoError(t, err)

	// origin is down while the mirror boots, then comes back
	var online atomic.Bool
	files := http.FileServer(http.Dir(srcDir))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !online.Load() {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	m, err := New(t.TempDir(), srv.URL, 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Start(ctx), "an unreachable origin at boot must not be fatal")
	assert.False(t, m.FileExists("a.txt"), "nothing served before the first good snapshot")

	online.Store(true)
	assert.Eventually(t, func() bool { return m.FileExists("a.txt") },
		5*time.Second, 10*time.Millisecond, "refresh loop must pick up the recovered origin")

	cancel()
	m.Wait()
}
