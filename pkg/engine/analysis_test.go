package engine

import (
	"testing"

	"github.com/entrhq/tabsweep/pkg/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotOf(windows ...browser.Window) browser.Snapshot {
	m := make(map[browser.VariantID][]browser.Window)
	for _, w := range windows {
		m[w.Browser] = append(m[w.Browser], w)
	}
	return browser.NewSnapshot(m)
}

func TestDuplicatesKeepFirstOccurrence(t *testing.T) {
	s := snapshotOf(window(browser.Safari, 1,
		"A", "https://one.com",
		"B", "https://two.com",
		"C", "https://one.com"))

	sets := Duplicates(s)
	require.Len(t, sets, 1)
	assert.Equal(t, "A", sets[0].Kept.Title)
	require.Len(t, sets[0].Duplicates, 1)
	assert.Equal(t, "C", sets[0].Duplicates[0].Title)
}

func TestDuplicatesAcrossBrowsersFollowEnumerationOrder(t *testing.T) {
	s := snapshotOf(
		window(browser.Chrome, 1, "chrome", "https://same.com", "blank", "", "blank2", ""),
		window(browser.Safari, 1, "safari", "https://same.com"),
	)
	sets := Duplicates(s)
	require.Len(t, sets, 1)
	assert.Equal(t, browser.Safari, sets[0].Kept.Browser, "safari enumerates before chrome")
	assert.Equal(t, browser.Chrome, sets[0].Duplicates[0].Browser)
}

func TestConsolidationSelectsOverflow(t *testing.T) {
	s := snapshotOf(window(browser.Chrome, 1,
		"1", "https://x.com/1",
		"other", "https://y.com",
		"2", "https://x.com/2",
		"3", "https://x.com/3",
		"4", "https://x.com/4",
		"5", "https://x.com/5",
		"none", "about:blank"))

	selected := Consolidation(s, 3)
	assert.Equal(t, []string{"https://x.com/4", "https://x.com/5"}, tabURLs(selected))

	assert.Len(t, Consolidation(s, 0), 4, "limit below one keeps one per domain")
	assert.Empty(t, Consolidation(s, 10))
}

func TestRankHeavy(t *testing.T) {
	m := MustHeavyMatcher([]string{"youtube.com", "*.atlassian.net"})
	s := snapshotOf(window(browser.Chrome, 1,
		"zeta", "https://example.com",
		"Music", "https://m.youtube.com/watch",
		"alpha", "https://example.org",
		"Board", "https://team.atlassian.net/board",
		"Beta", "https://example.net"))

	ranked := RankHeavy(s, m, 0)
	var titles []string
	for _, r := range ranked {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"Board", "Music", "alpha", "Beta", "zeta"}, titles)
	assert.True(t, ranked[0].Heavy)
	assert.Equal(t, "*.atlassian.net", ranked[0].Pattern)
	assert.Equal(t, "youtube.com", ranked[1].Pattern)
	assert.False(t, ranked[2].Heavy)

	assert.Len(t, RankHeavy(s, m, 2), 2)
}

func TestHeavyMatcher(t *testing.T) {
	m, err := NewHeavyMatcher([]string{" YouTube.com ", "", "docs.google.com", "*.atlassian.net", "cdn.**"})
	require.NoError(t, err)
	assert.Equal(t, []string{"youtube.com", "docs.google.com", "*.atlassian.net", "cdn.**"}, m.Patterns())

	tests := []struct {
		host    string
		pattern string
		ok      bool
	}{
		{"youtube.com", "youtube.com", true},
		{"www.youtube.com", "youtube.com", true},
		{"notyoutube.com", "", false},
		{"docs.google.com", "docs.google.com", true},
		{"mail.google.com", "", false},
		{"acme.atlassian.net", "*.atlassian.net", true},
		{"atlassian.net", "", false},
		{"cdn.example.com", "cdn.**", true},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			pattern, ok := m.Match(tt.host)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.pattern, pattern)
		})
	}

	_, err = NewHeavyMatcher([]string{"[broken"})
	assert.Error(t, err)

	var none *HeavyMatcher
	_, ok := none.Match("youtube.com")
	assert.False(t, ok)
}

func TestStatistics(t *testing.T) {
	s := snapshotOf(
		window(browser.Safari, 1, "a", "https://mail.example.co.uk/x", "b", "https://example.co.uk"),
		window(browser.Chrome, 1, "c", "https://example.co.uk", "d", ""),
		window(browser.Chrome, 2),
	)
	st := Statistics(s)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 3, st.Windows)
	assert.Equal(t, map[browser.VariantID]int{browser.Safari: 2, browser.Chrome: 2}, st.PerBrowser)
	assert.Equal(t, map[string]int{"mail.example.co.uk": 1, "example.co.uk": 2}, st.PerDomain)
	assert.Equal(t, map[string]int{"example.co.uk": 3}, st.PerSite)

	assert.Equal(t, []DomainCount{{"example.co.uk", 2}, {"mail.example.co.uk", 1}}, st.TopDomains(0))
	assert.Equal(t, []DomainCount{{"example.co.uk", 2}}, st.TopDomains(1))
}

func TestStatisticsEmpty(t *testing.T) {
	st := Statistics(browser.NewSnapshot(nil))
	assert.Zero(t, st.Total)
	assert.Empty(t, st.PerBrowser)
	assert.Empty(t, st.TopDomains(5))
}

func TestReadHelpersRespectBrowserRestriction(t *testing.T) {
	h := newHarness(t, browser.Safari, browser.Chrome)
	h.browsers.set(browser.Safari, window(browser.Safari, 1, "video", "https://www.youtube.com/1"))
	h.browsers.set(browser.Chrome, window(browser.Chrome, 1, "a", "https://x.com/a", "b", "https://x.com/b"))
	require.NoError(t, h.engine.RefreshAll(ctx))

	st := h.engine.Statistics(browser.Chrome)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, map[browser.VariantID]int{browser.Chrome: 2}, st.PerBrowser)
	assert.Equal(t, 3, h.engine.Statistics().Total)

	ranked := h.engine.HeavyTabs(0, browser.Chrome)
	require.Len(t, ranked, 2)
	for _, r := range ranked {
		assert.False(t, r.Heavy)
	}
	assert.True(t, h.engine.HeavyTabs(1)[0].Heavy)
}
