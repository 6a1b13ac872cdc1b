// Package script generates the AppleScript sent to browsers.
//
// Every enumeration dialect prints the same line grammar, one WINDOW line per
// window followed by that window's TAB lines:
//
//	WINDOW:<window index>|<window title>|<active tab index or 0>
//	TAB:<tab index>|<tab title>|<tab address>|<true|false>
//
// Indices are 1-based. Titles and addresses pass through a clean handler that
// replaces the field and line separators, and every per-field read is wrapped
// in a try block so a tab in a transient state yields empty fields instead of
// aborting the whole script.
package script

import (
	"fmt"
	"strings"

	"github.com/entrhq/tabsweep/pkg/browser"
)

// Grammar prefixes shared with the response parser.
const (
	WindowPrefix   = "WINDOW:"
	TabPrefix      = "TAB:"
	FieldSeparator = "|"
)

type generator func(appName string) string

// dialects maps each dialect to its enumeration script.
var dialects = map[browser.Dialect]generator{
	browser.DialectWebKit:   enumerateWebKit,
	browser.DialectChromium: enumerateChromium,
	browser.DialectSpaces:   enumerateSpaces,
}

// Enumerate returns the script listing every window and tab of v, addressed
// to the running application appName. Callers must reject variants without
// tab scripting first; for those the result is an empty string.
func Enumerate(v browser.Variant, appName string) string {
	gen, ok := dialects[v.Dialect]
	if !ok {
		return ""
	}
	if appName == "" {
		appName = v.DisplayName
	}
	return gen(appName)
}

// Quote renders s as an AppleScript string literal.
func Quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

const cleanHandler = `on clean(t)
	try
		set t to t as text
	on error
		return ""
	end try
	set oldDelims to AppleScript's text item delimiters
	set AppleScript's text item delimiters to {"|", return, linefeed}
	set parts to text items of t
	set AppleScript's text item delimiters to " "
	set t to parts as text
	set AppleScript's text item delimiters to oldDelims
	return t
end clean
`

// tabLoop emits the TAB lines for the list held in winTabs. Tab titles are
// read with titleProp since WebKit calls it "name" and Chromium "title".
func tabLoop(titleProp string) string {
	return fmt.Sprintf(`		set tabIndex to 0
		repeat with t in winTabs
			set tabIndex to tabIndex + 1
			set tabTitle to ""
			try
				set tabTitle to %s of t
			end try
			set tabURL to ""
			try
				set tabURL to URL of t
			end try
			set output to output & "TAB:" & tabIndex & "|" & my clean(tabTitle) & "|" & my clean(tabURL) & "|" & (tabIndex = activeIndex) & linefeed
		end repeat
`, titleProp)
}

const windowLine = `		set output to output & "WINDOW:" & winIndex & "|" & my clean(winTitle) & "|" & activeIndex & linefeed
`

const windowHeader = `	set winIndex to 0
	repeat with w in windows
		set winIndex to winIndex + 1
		set winTitle to ""
		try
			set winTitle to name of w
		end try
		set activeIndex to 0
		set winTabs to {}
`

func wrap(appName, body string) string {
	var b strings.Builder
	b.WriteString(cleanHandler)
	b.WriteString("\nset output to \"\"\n")
	b.WriteString("tell application " + Quote(appName) + "\n")
	b.WriteString(windowHeader)
	b.WriteString(body)
	b.WriteString("\tend repeat\nend tell\nreturn output\n")
	return b.String()
}

func enumerateWebKit(appName string) string {
	body := `		try
			set winTabs to tabs of w
		end try
		try
			set activeIndex to index of current tab of w
		end try
` + windowLine + tabLoop("name")
	return wrap(appName, body)
}

func enumerateChromium(appName string) string {
	body := `		try
			set winTabs to tabs of w
		end try
		try
			set activeIndex to active tab index of w
		end try
` + windowLine + tabLoop("title")
	return wrap(appName, body)
}

func enumerateSpaces(appName string) string {
	body := `		try
			set winTabs to tabs of active space of w
		on error
			try
				set winTabs to tabs of w
			end try
		end try
		set activeID to ""
		try
			set activeID to id of active tab of w
		end try
		set scanIndex to 0
		repeat with t in winTabs
			set scanIndex to scanIndex + 1
			try
				if (id of t) is activeID then set activeIndex to scanIndex
			end try
		end repeat
` + windowLine + tabLoop("title")
	return wrap(appName, body)
}

// CloseTab returns the script closing tab tabIndex of window windowIndex.
// The tab is addressed by position in the same collection the enumeration
// walked, so a stale position closes whatever tab is there now.
func CloseTab(v browser.Variant, appName string, windowIndex, tabIndex int) string {
	if appName == "" {
		appName = v.DisplayName
	}
	target := fmt.Sprintf("tab %d of window %d", tabIndex, windowIndex)
	switch v.Dialect {
	case browser.DialectSpaces:
		return fmt.Sprintf(`tell application %s
	try
		close tab %d of active space of window %d
	on error
		close %s
	end try
end tell
`, Quote(appName), tabIndex, windowIndex, target)
	default:
		return fmt.Sprintf("tell application %s\n\tclose %s\nend tell\n", Quote(appName), target)
	}
}

// ActivateTab returns the script bringing a tab to the front of its window
// and the window to the front of the application.
func ActivateTab(v browser.Variant, appName string, windowIndex, tabIndex int) string {
	if appName == "" {
		appName = v.DisplayName
	}
	var body string
	switch v.Dialect {
	case browser.DialectWebKit:
		body = fmt.Sprintf("\tset current tab of window %d to tab %d of window %d\n", windowIndex, tabIndex, windowIndex)
	case browser.DialectSpaces:
		body = fmt.Sprintf(`	try
		tell tab %d of active space of window %d to select
	on error
		tell tab %d of window %d to select
	end try
`, tabIndex, windowIndex, tabIndex, windowIndex)
	default:
		body = fmt.Sprintf("\tset active tab index of window %d to %d\n", windowIndex, tabIndex)
	}
	return fmt.Sprintf("tell application %s\n%s\tset index of window %d to 1\n\tactivate\nend tell\n",
		Quote(appName), body, windowIndex)
}

// Probe returns a harmless script whose only purpose is to make the OS ask
// for (or report) automation consent for appName.
func Probe(appName string) string {
	return fmt.Sprintf("tell application %s to count windows\n", Quote(appName))
}

// Installed returns a script printing "true" when an application with the
// bundle identifier exists on disk. It does not launch the application.
func Installed(bundleID string) string {
	return fmt.Sprintf(`try
	path to application id %s
	return "true"
on error
	return "false"
end try
`, Quote(bundleID))
}

// Running returns a script printing the display name of the application with
// the bundle identifier when it is running, and an empty string otherwise.
func Running(bundleID string) string {
	return fmt.Sprintf(`if application id %s is running then
	return name of application id %s
end if
return ""
`, Quote(bundleID), Quote(bundleID))
}
