package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	seen := make(map[string]VariantID)
	for _, v := range All() {
		require.NotEmpty(t, v.BundleID, "variant %s has no bundle id", v.ID)
		for _, id := range v.BundleIDs() {
			if owner, dup := seen[id]; dup {
				t.Fatalf("bundle id %s registered by both %s and %s", id, owner, v.ID)
			}
			seen[id] = v.ID
		}
		if v.SupportsTabScripting {
			assert.NotEqual(t, DialectNone, v.Dialect, "scriptable variant %s needs a dialect", v.ID)
		}
	}

	v, ok := LookupBundle("com.google.Chrome.canary")
	require.True(t, ok)
	assert.Equal(t, Chrome, v.ID)

	ff, ok := Lookup(Firefox)
	require.True(t, ok)
	assert.False(t, ff.SupportsTabScripting)

	assert.Equal(t, 0, Order(Safari))
	assert.Equal(t, -1, Order("netscape"))
}

func TestAllReturnsCopy(t *testing.T) {
	vs := All()
	vs[0].DisplayName = "changed"
	v, _ := Lookup(vs[0].ID)
	assert.NotEqual(t, "changed", v.DisplayName)
}

func TestVariantAlternatesNotShared(t *testing.T) {
	vs := All()
	require.Equal(t, Chrome, vs[1].ID)
	require.NotEmpty(t, vs[1].Alternates)
	vs[1].Alternates[0] = "com.example.hijacked"

	v, ok := Lookup(Chrome)
	require.True(t, ok)
	assert.Equal(t, "com.google.Chrome.beta", v.Alternates[0])

	v.Alternates[0] = "com.example.hijacked"
	again, _ := Lookup(Chrome)
	assert.Equal(t, "com.google.Chrome.beta", again.Alternates[0])

	owner, ok := LookupBundle("com.google.Chrome.beta")
	require.True(t, ok)
	owner.Alternates[0] = "com.example.hijacked"
	_, ok = LookupBundle("com.google.Chrome.beta")
	assert.True(t, ok)
}

func TestHost(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"https://Mail.Example.com/inbox", "mail.example.com"},
		{"http://localhost:8080/", "localhost"},
		{"about:blank", ""},
		{"", ""},
		{"://broken", ""},
		{"file:///tmp/x.html", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Host(tt.address), tt.address)
	}
}

func TestSite(t *testing.T) {
	assert.Equal(t, "example.co.uk", Site("mail.example.co.uk"))
	assert.Equal(t, "example.com", Site("a.b.example.com"))
	assert.Equal(t, "localhost", Site("localhost"))
	assert.Equal(t, "", Site(""))
}

func TestMatchesDomain(t *testing.T) {
	assert.True(t, MatchesDomain("example.com", "example.com"))
	assert.True(t, MatchesDomain("mail.example.com", "example.com"))
	assert.True(t, MatchesDomain("mail.example.com", "Example.COM."))
	assert.False(t, MatchesDomain("notexample.com", "example.com"))
	assert.False(t, MatchesDomain("example.com", "mail.example.com"))
	assert.False(t, MatchesDomain("", "example.com"))
	assert.False(t, MatchesDomain("example.com", ""))
}

func TestWindowActiveTab(t *testing.T) {
	w := Window{Index: 1, ActiveTabIndex: 2, Tabs: []Tab{{Index: 1}, {Index: 2}}}
	tab, ok := w.ActiveTab()
	require.True(t, ok)
	assert.Equal(t, 2, tab.Index)

	_, ok = Window{Tabs: []Tab{{Index: 1}}}.ActiveTab()
	assert.False(t, ok)
}

func TestSnapshot(t *testing.T) {
	chrome := []Window{{Browser: Chrome, Index: 1, Tabs: []Tab{
		{Browser: Chrome, WindowIndex: 1, Index: 1, URL: "https://b.com"},
	}}}
	safari := []Window{{Browser: Safari, Index: 1, Tabs: []Tab{
		{Browser: Safari, WindowIndex: 1, Index: 1, URL: "https://a.com"},
		{Browser: Safari, WindowIndex: 1, Index: 2, URL: "https://c.com"},
	}}}

	var s Snapshot
	s1 := s.With(Chrome, chrome)
	s2 := s1.With(Safari, safari)

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, s1.Len())
	assert.Equal(t, []VariantID{Safari, Chrome}, s2.Browsers())

	tabs := s2.Tabs()
	require.Len(t, tabs, 3)
	assert.Equal(t, "https://a.com", tabs[0].URL)
	assert.Equal(t, "https://b.com", tabs[2].URL)

	found, ok := s2.Find(TabKey{Browser: Safari, WindowIndex: 1, TabIndex: 2})
	require.True(t, ok)
	assert.Equal(t, "https://c.com", found.URL)

	_, ok = s2.Find(TabKey{Browser: Safari, WindowIndex: 2, TabIndex: 1})
	assert.False(t, ok)

	s3 := s2.Without(Chrome)
	_, ok = s3.Windows(Chrome)
	assert.False(t, ok)
	_, ok = s2.Windows(Chrome)
	assert.True(t, ok, "Without must not touch the original")

	only := s2.Only(Chrome)
	assert.Equal(t, []VariantID{Chrome}, only.Browsers())
	assert.Equal(t, []VariantID{Safari, Chrome}, s2.Browsers())
	assert.Equal(t, s2, s2.Only())
	assert.Equal(t, 0, s2.Only(Arc).Len())

	empty := s.With(Arc, nil)
	ws, ok := empty.Windows(Arc)
	assert.True(t, ok)
	assert.NotNil(t, ws)
	assert.Empty(t, ws)
}

func TestTabIdentity(t *testing.T) {
	a := Tab{Browser: Chrome, WindowIndex: 1, Index: 3, Title: "x", URL: "https://x.com"}
	b := Tab{Browser: Chrome, WindowIndex: 1, Index: 3, Title: "y", URL: "https://y.com"}
	c := Tab{Browser: Chrome, WindowIndex: 2, Index: 3}
	assert.True(t, a.Same(b))
	assert.False(t, a.Same(c))
}
