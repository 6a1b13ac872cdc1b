// Package response turns enumeration script output into windows and tabs.
package response

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/entrhq/tabsweep/pkg/browser"
	"github.com/entrhq/tabsweep/pkg/script"
)

type state int

const (
	stateNoWindow state = iota
	stateInWindow
)

// Parse reads the WINDOW/TAB grammar and returns the windows it describes,
// in order. Parse never fails: unknown lines are skipped, and malformed lines
// (wrong field count, non-numeric window or tab index) are dropped without
// losing the lines after them. Tabs following a malformed WINDOW line are
// dropped with it, since they cannot be attributed to a window.
func Parse(id browser.VariantID, raw string) []browser.Window {
	windows := []browser.Window{}
	var current browser.Window
	st := stateNoWindow

	flush := func() {
		if st == stateInWindow && current.Index > 0 {
			windows = append(windows, current)
		}
		current = browser.Window{}
		st = stateNoWindow
	}

	sc := bufio.NewScanner(strings.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")

		switch {
		case strings.HasPrefix(line, script.WindowPrefix):
			flush()
			w, ok := parseWindow(id, strings.TrimPrefix(line, script.WindowPrefix))
			if !ok {
				continue
			}
			current = w
			st = stateInWindow

		case strings.HasPrefix(line, script.TabPrefix):
			if st != stateInWindow {
				continue
			}
			tab, ok := parseTab(id, current.Index, strings.TrimPrefix(line, script.TabPrefix))
			if !ok {
				continue
			}
			current.Tabs = append(current.Tabs, tab)
		}
	}
	flush()

	return windows
}

func parseWindow(id browser.VariantID, body string) (browser.Window, bool) {
	fields := strings.Split(body, script.FieldSeparator)
	if len(fields) != 3 {
		return browser.Window{}, false
	}
	index, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil || index <= 0 {
		return browser.Window{}, false
	}
	return browser.Window{
		Browser:        id,
		Index:          index,
		Title:          fields[1],
		ActiveTabIndex: atoiOrZero(fields[2]),
		Tabs:           []browser.Tab{},
	}, true
}

func parseTab(id browser.VariantID, windowIndex int, body string) (browser.Tab, bool) {
	fields := strings.Split(body, script.FieldSeparator)
	if len(fields) != 4 {
		return browser.Tab{}, false
	}
	index, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil || index <= 0 {
		return browser.Tab{}, false
	}
	return browser.Tab{
		Browser:     id,
		WindowIndex: windowIndex,
		Index:       index,
		Title:       fields[1],
		URL:         fields[2],
		Active:      strings.TrimSpace(fields[3]) == "true",
	}, true
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
