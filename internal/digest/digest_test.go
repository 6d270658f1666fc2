package digest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	d := Sum([]byte("hello"))
	parsed, err := Parse(d.String())
	require.NoError(t, err)
	assert.Equal(t, d, parsed)
}

func TestParseRejectsBadInput(t *testing.T) {
	_, err := Parse("abc")
	assert.Error(t, err)

	_, err = Parse(strings.Repeat("zz", Size))
	assert.Error(t, err)
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	d, n, err := HashFile(path)
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)
	assert.Equal(t, Sum([]byte("0123456789")), d)
	assert.False(t, d.IsZero())
}
