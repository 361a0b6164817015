package bundle

import (
	"bufio"
	"bytes"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFile holds additional per-app ignore patterns, one per line.
const IgnoreFile = ".vmcignore"

// DefaultIgnores are never uploaded.
var DefaultIgnores = []string{
	".git",
	".svn",
	".hg",
	"_darcs",
	".DS_Store",
	"*~",
	IgnoreFile,
}

// Matcher decides which bundle paths are excluded.
type Matcher struct {
	patterns []string
}

// NewMatcher builds a matcher from DefaultIgnores plus patterns.
func NewMatcher(patterns ...string) *Matcher {
	m := &Matcher{patterns: append([]string{}, DefaultIgnores...)}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		m.patterns = append(m.patterns, filepath.ToSlash(p))
	}
	return m
}

// LoadMatcher reads root/.vmcignore if present.
func LoadMatcher(root string) (*Matcher, error) {
	data, err := os.ReadFile(filepath.Join(root, IgnoreFile))
	if err != nil {
		if os.IsNotExist(err) {
			return NewMatcher(), nil
		}
		return nil, err
	}

	var patterns []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewMatcher(patterns...), nil
}

// Match reports whether rel (a slash-separated path relative to the root)
// is excluded. Patterns without a slash match any path component's base
// name; patterns with a slash match from the root. A trailing slash
// restricts a pattern to directories.
func (m *Matcher) Match(rel string, isDir bool) bool {
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "./")
	base := path.Base(rel)

	for _, pattern := range m.patterns {
		dirOnly := strings.HasSuffix(pattern, "/")
		p := strings.TrimSuffix(pattern, "/")
		if dirOnly && !isDir {
			continue
		}

		if strings.Contains(p, "/") {
			if ok, _ := path.Match(strings.TrimPrefix(p, "/"), rel); ok {
				return true
			}
			continue
		}
		if ok, _ := path.Match(p, base); ok {
			return true
		}
	}
	return false
}
