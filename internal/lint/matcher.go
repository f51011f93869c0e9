// Package lint evaluates architectural rules over the file graph, scores
// violation confidence, and applies the suppression stack (inline comment,
// source set, baseline).
package lint

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Matcher matches project-relative paths against include globs with
// optional `!`-prefixed negation globs. Compiled once per rule; match
// results are cached across files.
type Matcher struct {
	include []string
	exclude []string
	cache   *lru.Cache[string, bool]
}

// NewMatcher builds a matcher from patterns. An empty list matches nothing.
func NewMatcher(patterns []string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		if negated, ok := strings.CutPrefix(p, "!"); ok {
			m.exclude = append(m.exclude, negated)
		} else {
			m.include = append(m.include, p)
		}
	}
	m.cache, _ = lru.New[string, bool](8192)
	return m
}

// Match reports whether a path matches any include and no exclude pattern.
func (m *Matcher) Match(path string) bool {
	if cached, ok := m.cache.Get(path); ok {
		return cached
	}
	result := matchAny(m.include, path) && !matchAny(m.exclude, path)
	m.cache.Add(path, result)
	return result
}

func matchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, path); err == nil && ok {
			return true
		}
	}
	return false
}

// regexCache holds compiled naming-boundary regexes for the process.
var regexCache, _ = lru.New[string, *regexp.Regexp](256)

func compileRegex(pattern string) (*regexp.Regexp, error) {
	if re, ok := regexCache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexCache.Add(pattern, re)
	return re, nil
}
