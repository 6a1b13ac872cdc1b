// Package browser defines the set of supported browsers and the window/tab
// model produced by enumerating them.
package browser

// VariantID identifies one supported browser product.
type VariantID string

const (
	Safari   VariantID = "safari"
	Chrome   VariantID = "chrome"
	Chromium VariantID = "chromium"
	Edge     VariantID = "edge"
	Brave    VariantID = "brave"
	Vivaldi  VariantID = "vivaldi"
	Opera    VariantID = "opera"
	Arc      VariantID = "arc"
	Firefox  VariantID = "firefox"
)

// Dialect selects how a browser's object model is walked to find its tabs.
type Dialect string

const (
	// DialectWebKit walks windows with a single "current tab" (Safari).
	DialectWebKit Dialect = "webkit"
	// DialectChromium walks windows exposing an "active tab index".
	DialectChromium Dialect = "chromium"
	// DialectSpaces walks the active space (tab group) of each window and
	// falls back to the window's flat tab list.
	DialectSpaces Dialect = "spaces"
	// DialectNone marks browsers without a scripting dictionary for tabs.
	DialectNone Dialect = ""
)

// Variant describes a supported browser. Variants are defined at compile time
// and never mutated.
type Variant struct {
	ID          VariantID
	DisplayName string
	// BundleID is the primary platform identifier.
	BundleID string
	// Alternates lists other channels of the same product (beta, dev, canary).
	Alternates []string
	Dialect    Dialect
	// SupportsTabScripting is false for browsers that cannot be driven at all.
	SupportsTabScripting bool
}

// BundleIDs returns the primary identifier followed by all alternates.
func (v Variant) BundleIDs() []string {
	ids := make([]string, 0, 1+len(v.Alternates))
	ids = append(ids, v.BundleID)
	ids = append(ids, v.Alternates...)
	return ids
}

// registry is ordered; that order is the enumeration order used everywhere.
var registry = []Variant{
	{
		ID:                   Safari,
		DisplayName:          "Safari",
		BundleID:             "com.apple.Safari",
		Alternates:           []string{"com.apple.SafariTechnologyPreview"},
		Dialect:              DialectWebKit,
		SupportsTabScripting: true,
	},
	{
		ID:                   Chrome,
		DisplayName:          "Google Chrome",
		BundleID:             "com.google.Chrome",
		Alternates:           []string{"com.google.Chrome.beta", "com.google.Chrome.dev", "com.google.Chrome.canary"},
		Dialect:              DialectChromium,
		SupportsTabScripting: true,
	},
	{
		ID:                   Chromium,
		DisplayName:          "Chromium",
		BundleID:             "org.chromium.Chromium",
		Dialect:              DialectChromium,
		SupportsTabScripting: true,
	},
	{
		ID:                   Edge,
		DisplayName:          "Microsoft Edge",
		BundleID:             "com.microsoft.edgemac",
		Alternates:           []string{"com.microsoft.edgemac.Beta", "com.microsoft.edgemac.Dev", "com.microsoft.edgemac.Canary"},
		Dialect:              DialectChromium,
		SupportsTabScripting: true,
	},
	{
		ID:                   Brave,
		DisplayName:          "Brave Browser",
		BundleID:             "com.brave.Browser",
		Alternates:           []string{"com.brave.Browser.beta", "com.brave.Browser.nightly"},
		Dialect:              DialectChromium,
		SupportsTabScripting: true,
	},
	{
		ID:                   Vivaldi,
		DisplayName:          "Vivaldi",
		BundleID:             "com.vivaldi.Vivaldi",
		Alternates:           []string{"com.vivaldi.Vivaldi.snapshot"},
		Dialect:              DialectChromium,
		SupportsTabScripting: true,
	},
	{
		ID:                   Opera,
		DisplayName:          "Opera",
		BundleID:             "com.operasoftware.Opera",
		Alternates:           []string{"com.operasoftware.OperaNext", "com.operasoftware.OperaDeveloper"},
		Dialect:              DialectChromium,
		SupportsTabScripting: true,
	},
	{
		ID:                   Arc,
		DisplayName:          "Arc",
		BundleID:             "company.thebrowser.Browser",
		Dialect:              DialectSpaces,
		SupportsTabScripting: true,
	},
	{
		ID:                   Firefox,
		DisplayName:          "Firefox",
		BundleID:             "org.mozilla.firefox",
		Alternates:           []string{"org.mozilla.firefoxdeveloperedition", "org.mozilla.nightly"},
		Dialect:              DialectNone,
		SupportsTabScripting: false,
	},
}

// All returns every supported variant in enumeration order.
func All() []Variant {
	out := make([]Variant, len(registry))
	for i, v := range registry {
		out[i] = v.clone()
	}
	return out
}

// clone copies v including its Alternates so callers cannot reach the
// registry's backing arrays.
func (v Variant) clone() Variant {
	v.Alternates = append([]string(nil), v.Alternates...)
	return v
}

// Lookup finds a variant by ID.
func Lookup(id VariantID) (Variant, bool) {
	for _, v := range registry {
		if v.ID == id {
			return v.clone(), true
		}
	}
	return Variant{}, false
}

// LookupBundle finds the variant owning a bundle identifier, primary or alternate.
func LookupBundle(bundleID string) (Variant, bool) {
	for _, v := range registry {
		for _, id := range v.BundleIDs() {
			if id == bundleID {
				return v.clone(), true
			}
		}
	}
	return Variant{}, false
}

// Order returns the position of id in enumeration order, or -1.
func Order(id VariantID) int {
	for i, v := range registry {
		if v.ID == id {
			return i
		}
	}
	return -1
}
