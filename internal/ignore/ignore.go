// Package ignore applies gitignore-style rules from a .satsumaignore file to
// files copied verbatim into the public root.
package ignore

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"git.home.luguber.info/inful/satsuma/internal/storage"
)

// FileName is the rules file looked up at the source root.
const FileName = ".satsumaignore"

// Matcher decides whether a source file is excluded from asset copying.
type Matcher struct {
	root    string
	matcher gitignore.Matcher
	count   int
}

// Parse builds a matcher for files under root from rules text.
func Parse(root, rules string) *Matcher {
	var patterns []gitignore.Pattern
	for _, line := range strings.Split(rules, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return &Matcher{root: root, matcher: gitignore.NewMatcher(patterns), count: len(patterns)}
}

// Load reads root/.satsumaignore. A missing file yields a matcher that only
// excludes the rules file itself.
func Load(ctx context.Context, fs storage.Adapter, root string) (*Matcher, error) {
	data, err := fs.ReadFile(ctx, filepath.Join(root, FileName))
	if err != nil {
		if storage.IsNotExist(err) {
			return Parse(root, ""), nil
		}
		return nil, err
	}
	return Parse(root, string(data)), nil
}

// Len returns the number of active patterns.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return m.count
}

// Ignored reports whether the file at path is excluded. Paths outside root
// are never ignored, and neither is anything when m is nil.
func (m *Matcher) Ignored(path string) bool {
	if m == nil {
		return false
	}
	rel, err := filepath.Rel(m.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	if rel == FileName {
		return true
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	// a rule may name any parent directory
	for i := 1; i < len(parts); i++ {
		if m.matcher.Match(parts[:i], true) {
			return true
		}
	}
	return m.matcher.Match(parts, false)
}
