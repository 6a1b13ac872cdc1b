package engine

import (
	"sort"
	"strings"

	"github.com/entrhq/tabsweep/pkg/browser"
)

// DuplicateSet groups tabs sharing one address. Kept is the first
// occurrence in enumeration order.
type DuplicateSet struct {
	URL        string        `json:"url" yaml:"url"`
	Kept       browser.Tab   `json:"kept" yaml:"kept"`
	Duplicates []browser.Tab `json:"duplicates" yaml:"duplicates"`
}

// Duplicates finds tabs with identical addresses across all browsers.
// Tabs without an address are ignored.
func Duplicates(s browser.Snapshot) []DuplicateSet {
	index := make(map[string]int)
	var sets []DuplicateSet
	for _, t := range s.Tabs() {
		if t.URL == "" {
			continue
		}
		i, ok := index[t.URL]
		if !ok {
			index[t.URL] = len(sets)
			sets = append(sets, DuplicateSet{URL: t.URL, Kept: t})
			continue
		}
		sets[i].Duplicates = append(sets[i].Duplicates, t)
	}

	out := sets[:0]
	for _, set := range sets {
		if len(set.Duplicates) > 0 {
			out = append(out, set)
		}
	}
	return out
}

// FindDuplicates runs Duplicates over the current snapshot, limited to the
// given browsers when any are named.
func (e *Engine) FindDuplicates(only ...browser.VariantID) []DuplicateSet {
	return Duplicates(e.Snapshot().Only(only...))
}

// Consolidation keeps the first maxPerDomain tabs of every domain, in
// enumeration order, and returns the rest. Tabs without a host are never
// selected. A limit below one is treated as one.
func Consolidation(s browser.Snapshot, maxPerDomain int) []browser.Tab {
	if maxPerDomain < 1 {
		maxPerDomain = 1
	}
	seen := make(map[string]int)
	var out []browser.Tab
	for _, t := range s.Tabs() {
		d := t.Domain()
		if d == "" {
			continue
		}
		seen[d]++
		if seen[d] > maxPerDomain {
			out = append(out, t)
		}
	}
	return out
}

// Consolidate runs Consolidation over the current snapshot, limited to the
// given browsers when any are named.
func (e *Engine) Consolidate(maxPerDomain int, only ...browser.VariantID) []browser.Tab {
	return Consolidation(e.Snapshot().Only(only...), maxPerDomain)
}

// RankedTab is a tab with its heavy-site classification.
type RankedTab struct {
	browser.Tab `yaml:",inline"`
	Heavy       bool   `json:"heavy" yaml:"heavy"`
	Pattern     string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// RankHeavy orders every tab of s with heavy-site tabs first, then by title
// ignoring case, and returns at most limit of them. limit <= 0 means all.
func RankHeavy(s browser.Snapshot, m *HeavyMatcher, limit int) []RankedTab {
	tabs := s.Tabs()
	ranked := make([]RankedTab, len(tabs))
	for i, t := range tabs {
		pattern, heavy := m.Match(t.Domain())
		ranked[i] = RankedTab{Tab: t, Heavy: heavy, Pattern: pattern}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Heavy != b.Heavy {
			return a.Heavy
		}
		ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title)
		if ta != tb {
			return ta < tb
		}
		return a.Title < b.Title
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// HeavyTabs runs RankHeavy over the current snapshot, limited to the given
// browsers when any are named.
func (e *Engine) HeavyTabs(limit int, only ...browser.VariantID) []RankedTab {
	return RankHeavy(e.Snapshot().Only(only...), e.heavy, limit)
}

// Stats aggregates the snapshot.
type Stats struct {
	Total      int                       `json:"total" yaml:"total"`
	Windows    int                       `json:"windows" yaml:"windows"`
	PerBrowser map[browser.VariantID]int `json:"per_browser" yaml:"per_browser"`
	// PerDomain counts tabs by host; tabs without one are only in Total.
	PerDomain map[string]int `json:"per_domain" yaml:"per_domain"`
	// PerSite counts tabs by registrable domain.
	PerSite map[string]int `json:"per_site" yaml:"per_site"`
}

// DomainCount is one row of Stats.TopDomains.
type DomainCount struct {
	Domain string `json:"domain" yaml:"domain"`
	Count  int    `json:"count" yaml:"count"`
}

// Statistics aggregates s.
func Statistics(s browser.Snapshot) Stats {
	st := Stats{
		PerBrowser: make(map[browser.VariantID]int),
		PerDomain:  make(map[string]int),
		PerSite:    make(map[string]int),
	}
	for _, id := range s.Browsers() {
		windows, _ := s.Windows(id)
		st.Windows += len(windows)
		st.PerBrowser[id] = 0
		for _, w := range windows {
			for _, t := range w.Tabs {
				st.Total++
				st.PerBrowser[id]++
				if host := t.Domain(); host != "" {
					st.PerDomain[host]++
					st.PerSite[browser.Site(host)]++
				}
			}
		}
	}
	return st
}

// Statistics runs Statistics over the current snapshot, limited to the given
// browsers when any are named.
func (e *Engine) Statistics(only ...browser.VariantID) Stats {
	return Statistics(e.Snapshot().Only(only...))
}

// TopDomains returns the n hosts with the most tabs, most first, ties by
// name. n <= 0 returns all.
func (s Stats) TopDomains(n int) []DomainCount {
	out := make([]DomainCount, 0, len(s.PerDomain))
	for d, c := range s.PerDomain {
		out = append(out, DomainCount{Domain: d, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Domain < out[j].Domain
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
