package response

import (
	"strconv"
	"strings"

	"github.com/entrhq/tabsweep/pkg/browser"
	"github.com/entrhq/tabsweep/pkg/script"
)

// Render writes windows in the enumeration grammar. It is the inverse of
// Parse for windows whose titles and addresses contain no separators.
func Render(windows []browser.Window) string {
	var b strings.Builder
	for _, w := range windows {
		b.WriteString(script.WindowPrefix)
		b.WriteString(strconv.Itoa(w.Index))
		b.WriteString(script.FieldSeparator)
		b.WriteString(w.Title)
		b.WriteString(script.FieldSeparator)
		b.WriteString(strconv.Itoa(w.ActiveTabIndex))
		b.WriteByte('\n')
		for _, t := range w.Tabs {
			b.WriteString(script.TabPrefix)
			b.WriteString(strconv.Itoa(t.Index))
			b.WriteString(script.FieldSeparator)
			b.WriteString(t.Title)
			b.WriteString(script.FieldSeparator)
			b.WriteString(t.URL)
			b.WriteString(script.FieldSeparator)
			b.WriteString(strconv.FormatBool(t.Active))
			b.WriteByte('\n')
		}
	}
	return b.String()
}
