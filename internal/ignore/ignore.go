// Package ignore filters paths that should never be tracked: the log/meta
// pair itself, editor droppings and temp files.
package ignore

import (
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/treemirror/treemirror/internal/changelog"
)

var defaultLines = []string{
	changelog.LogFileName,
	changelog.MetaFileName,
	changelog.MetaFileName + ".tmp*",
	".treemirror.lock",
	"*.tmp",
	"*.swp",
	"*.swo",
	"*~",
	".DS_Store",
	"Thumbs.db",
	".git/",
}

// List matches portable relative paths against gitignore-style patterns.
type List struct {
	ignore *gitignore.GitIgnore
}

// Default returns the built-in list.
func Default() *List {
	return &List{ignore: gitignore.CompileIgnoreLines(defaultLines...)}
}

// WithExtra returns a list combining the defaults with extra patterns.
func WithExtra(lines ...string) *List {
	all := append(append([]string{}, defaultLines...), lines...)
	return &List{ignore: gitignore.CompileIgnoreLines(all...)}
}

// Match reports whether a portable relative path should be ignored.
func (l *List) Match(rel string) bool {
	return l.ignore.MatchesPath(rel)
}
