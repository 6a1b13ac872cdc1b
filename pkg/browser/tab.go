package browser

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// TabKey is the identity of a tab: browser, 1-based window index and 1-based
// tab index. Title and address are not part of the identity.
type TabKey struct {
	Browser     VariantID
	WindowIndex int
	TabIndex    int
}

// Tab is one entry produced by enumerating a browser window.
type Tab struct {
	Browser     VariantID `json:"browser" yaml:"browser"`
	WindowIndex int       `json:"window" yaml:"window"`
	Index       int       `json:"index" yaml:"index"`
	Title       string    `json:"title" yaml:"title"`
	URL         string    `json:"url" yaml:"url"`
	Active      bool      `json:"active" yaml:"active"`
}

// Key returns the tab's identity.
func (t Tab) Key() TabKey {
	return TabKey{Browser: t.Browser, WindowIndex: t.WindowIndex, TabIndex: t.Index}
}

// Same reports whether two tabs share an identity.
func (t Tab) Same(other Tab) bool {
	return t.Key() == other.Key()
}

// Domain returns the lowercased host of the tab's address, or "" if the
// address has no parsable host.
func (t Tab) Domain() string {
	return Host(t.URL)
}

// Host extracts the lowercased host component of address.
func Host(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}
	u, err := url.Parse(address)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Site returns the registrable domain (eTLD+1) of host, e.g. "mail.example.co.uk"
// yields "example.co.uk". Hosts without a registrable domain (IP addresses,
// "localhost", bare suffixes) are returned unchanged.
func Site(host string) string {
	if host == "" {
		return ""
	}
	site, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return site
}

// MatchesDomain reports whether host equals domain or is a subdomain of it.
// "mail.example.com" matches "example.com"; "notexample.com" does not.
func MatchesDomain(host, domain string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	domain = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Window is one browser window with its tabs in enumeration order.
type Window struct {
	Browser VariantID `json:"browser" yaml:"browser"`
	Index   int       `json:"index" yaml:"index"`
	Title   string    `json:"title" yaml:"title"`
	// ActiveTabIndex is 1-based; 0 means unknown.
	ActiveTabIndex int   `json:"active_tab_index" yaml:"active_tab_index"`
	Tabs           []Tab `json:"tabs" yaml:"tabs"`
}

// ActiveTab returns the window's active tab if it is known.
func (w Window) ActiveTab() (Tab, bool) {
	for _, t := range w.Tabs {
		if t.Active || (w.ActiveTabIndex > 0 && t.Index == w.ActiveTabIndex) {
			return t, true
		}
	}
	return Tab{}, false
}
