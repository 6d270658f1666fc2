package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNorm(t *testing.T) {
	cases := map[string]string{
		"a/b/c.txt":      "a/b/c.txt",
		"/a/b/c.txt":     "a/b/c.txt",
		"a//b///c.txt":   "a/b/c.txt",
		"a/./b/c.txt":    "a/b/c.txt",
		"a/b/../b/c.txt": "a/b/c.txt",
		"a\\b\\c.txt":    "a/b/c.txt",
		".":              "",
		"":               "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Norm(in), "Norm(%q)", in)
	}
}

func TestNormIdenticalSpellings(t *testing.T) {
	// two representations of the same location must normalize identically
	assert.Equal(t, Norm("/docs/readme.md"), Norm("docs//./readme.md"))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("a/b.txt"))
	assert.Error(t, Validate(""))
	assert.Error(t, Validate("../escape.txt"))
	assert.Error(t, Validate("/abs.txt"))
}

func TestValidateRejectsControlCharacters(t *testing.T) {
	// tab and newline names would corrupt the line-oriented log format
	assert.Error(t, Validate("a\tb.txt"))
	assert.Error(t, Validate("a\nb.txt"))
	assert.Error(t, Validate("a\rb.txt"))
	assert.Error(t, Validate("a\x00b.txt"))
	assert.Error(t, Validate("sub/a\tb.txt"))
}

func TestParentBase(t *testing.T) {
	assert.Equal(t, "a/b", Parent("a/b/c.txt"))
	assert.Equal(t, "", Parent("top.txt"))
	assert.Equal(t, "c.txt", Base("a/b/c.txt"))
	assert.Equal(t, []string{"a", "b", "c.txt"}, Split("a/b/c.txt"))
	assert.Nil(t, Split(""))
}
