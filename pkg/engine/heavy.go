package engine

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

type heavyPattern struct {
	source string
	exact  glob.Glob
	sub    glob.Glob
}

// HeavyMatcher decides whether a host belongs to a resource-heavy site.
// Patterns are globs over dot-separated labels: "*" matches one label and
// "**" any number. A pattern also matches every subdomain of what it names,
// so "youtube.com" covers "m.youtube.com".
type HeavyMatcher struct {
	patterns []heavyPattern
}

// NewHeavyMatcher compiles patterns. Blank patterns are skipped.
func NewHeavyMatcher(patterns []string) (*HeavyMatcher, error) {
	m := &HeavyMatcher{}
	for _, raw := range patterns {
		p := strings.ToLower(strings.TrimSpace(raw))
		if p == "" {
			continue
		}
		exact, err := glob.Compile(p, '.')
		if err != nil {
			return nil, fmt.Errorf("invalid heavy domain pattern %q: %w", raw, err)
		}
		sub, err := glob.Compile("**."+p, '.')
		if err != nil {
			return nil, fmt.Errorf("invalid heavy domain pattern %q: %w", raw, err)
		}
		m.patterns = append(m.patterns, heavyPattern{source: p, exact: exact, sub: sub})
	}
	return m, nil
}

// MustHeavyMatcher is NewHeavyMatcher for patterns known to compile.
func MustHeavyMatcher(patterns []string) *HeavyMatcher {
	m, err := NewHeavyMatcher(patterns)
	if err != nil {
		panic(err)
	}
	return m
}

// Match returns the first pattern matching host.
func (m *HeavyMatcher) Match(host string) (string, bool) {
	if m == nil {
		return "", false
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return "", false
	}
	for _, p := range m.patterns {
		if p.exact.Match(host) || p.sub.Match(host) {
			return p.source, true
		}
	}
	return "", false
}

// Patterns returns the normalised patterns in match order.
func (m *HeavyMatcher) Patterns() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.patterns))
	for i, p := range m.patterns {
		out[i] = p.source
	}
	return out
}
