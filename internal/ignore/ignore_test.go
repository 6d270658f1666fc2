package ignore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultMatchesReservedAndJunk(t *testing.T) {
	l := Default()
	assert.True(t, l.Match(".treemirror.log"))
	assert.True(t, l.Match(".treemirror.meta"))
	assert.True(t, l.Match(".treemirror.lock"))
	assert.True(t, l.Match("sub/editor.swp"))
	assert.True(t, l.Match("a/b/.DS_Store"))
	assert.True(t, l.Match("scratch.tmp"))
	assert.False(t, l.Match("docs/readme.md"))
}

func TestWithExtra(t *testing.T) {
	l := WithExtra("*.bak", "build/")
	assert.True(t, l.Match("old.bak"))
	assert.True(t, l.Match("build/out.bin"))
	assert.True(t, l.Match(".treemirror.log"), "defaults are kept")
	assert.False(t, l.Match("src/main.go"))
}
