package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/entrhq/tabsweep/pkg/browser"
	"github.com/entrhq/tabsweep/pkg/engine"
	"github.com/entrhq/tabsweep/pkg/permission"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	accent    = lipgloss.Color("#FFB3BA")
	mintGreen = lipgloss.Color("#A8E6CF")
	mutedGray = lipgloss.Color("#6B7280")
	amber     = lipgloss.Color("#FCD34D")

	headerStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(mutedGray)
	okStyle     = lipgloss.NewStyle().Foreground(mintGreen).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(accent)
	heavyStyle  = lipgloss.NewStyle().Foreground(amber)
	noticeStyle = lipgloss.NewStyle().
			Foreground(mintGreen).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mintGreen).
			Padding(0, 1)
)

const (
	maxTitleWidth = 48
	maxURLWidth   = 64
)

// render writes v as JSON or YAML, or calls text for the text format.
func (a *app) render(v any, text func(io.Writer)) error {
	switch a.config.Output {
	case formatJSON:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(a.out)
		return nil
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...)
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

func tabLabel(t browser.Tab) string {
	title := t.Title
	if title == "" {
		title = t.URL
	}
	return fmt.Sprintf("%s %d:%d %s", displayName(string(t.Browser)), t.WindowIndex, t.Index, truncate(title, maxTitleWidth))
}

type browserRow struct {
	ID         browser.VariantID `json:"id" yaml:"id"`
	Name       string            `json:"name" yaml:"name"`
	Installed  bool              `json:"installed" yaml:"installed"`
	Running    bool              `json:"running" yaml:"running"`
	Scriptable bool              `json:"scriptable" yaml:"scriptable"`
	Permission permission.State  `json:"permission" yaml:"permission"`
}

func renderBrowsers(w io.Writer, rows []browserRow) {
	t := newTable("Browser", "ID", "Installed", "Running", "Scriptable", "Permission")
	for _, r := range rows {
		t.Row(r.Name, string(r.ID), yesNo(r.Installed), yesNo(r.Running), yesNo(r.Scriptable), string(r.Permission))
	}
	fmt.Fprintln(w, t)
}

func renderWindows(w io.Writer, windows []browser.Window) {
	if len(windows) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No tabs found. Is a supported browser running?"))
		return
	}
	for _, win := range windows {
		title := win.Title
		if title == "" {
			title = "untitled"
		}
		fmt.Fprintf(w, "%s %s\n", headerStyle.Render(fmt.Sprintf("%s window %d", displayName(string(win.Browser)), win.Index)),
			mutedStyle.Render(truncate(title, maxTitleWidth)))
		for _, t := range win.Tabs {
			marker := " "
			if t.Active {
				marker = okStyle.Render("*")
			}
			fmt.Fprintf(w, "  %3d %s %-*s %s\n", t.Index, marker, maxTitleWidth, truncate(t.Title, maxTitleWidth),
				mutedStyle.Render(truncate(t.URL, maxURLWidth)))
		}
	}
}

func renderTabs(w io.Writer, heading string, tabs []browser.Tab) {
	if len(tabs) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("Nothing to show."))
		return
	}
	fmt.Fprintln(w, headerStyle.Render(heading))
	t := newTable("Browser", "Win", "Tab", "Title", "Address")
	for _, tab := range tabs {
		t.Row(displayName(string(tab.Browser)), strconv.Itoa(tab.WindowIndex), strconv.Itoa(tab.Index),
			truncate(tab.Title, maxTitleWidth), truncate(tab.URL, maxURLWidth))
	}
	fmt.Fprintln(w, t)
}

func renderDuplicates(w io.Writer, sets []engine.DuplicateSet) {
	if len(sets) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No duplicate tabs."))
		return
	}
	for _, set := range sets {
		fmt.Fprintln(w, headerStyle.Render(truncate(set.URL, maxURLWidth)))
		fmt.Fprintf(w, "  %s %s\n", okStyle.Render("keep "), tabLabel(set.Kept))
		for _, d := range set.Duplicates {
			fmt.Fprintf(w, "  %s %s\n", errorStyle.Render("close"), tabLabel(d))
		}
	}
}

func renderHeavy(w io.Writer, ranked []engine.RankedTab) {
	t := newTable("Heavy", "Browser", "Win", "Tab", "Title", "Domain")
	for _, r := range ranked {
		heavy := "-"
		if r.Heavy {
			heavy = heavyStyle.Render(r.Pattern)
		}
		t.Row(heavy, displayName(string(r.Browser)), strconv.Itoa(r.WindowIndex), strconv.Itoa(r.Index),
			truncate(r.Title, maxTitleWidth), r.Domain())
	}
	fmt.Fprintln(w, t)
}

func renderStats(w io.Writer, st engine.Stats, top []engine.DomainCount) {
	fmt.Fprintf(w, "%s %d tabs in %d windows\n", headerStyle.Render("Total"), st.Total, st.Windows)

	browsers := newTable("Browser", "Tabs")
	for _, v := range browser.All() {
		if n, ok := st.PerBrowser[v.ID]; ok {
			browsers.Row(v.DisplayName, strconv.Itoa(n))
		}
	}
	fmt.Fprintln(w, browsers)

	if len(top) == 0 {
		return
	}
	domains := newTable("Domain", "Tabs", "Site")
	for _, d := range top {
		domains.Row(d.Domain, strconv.Itoa(d.Count), browser.Site(d.Domain))
	}
	fmt.Fprintln(w, domains)
}

func renderPermissions(w io.Writer, records []permission.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No permission checks recorded yet. Run tabsweep list or tabsweep permissions -probe."))
		return
	}
	t := newTable("Browser", "State", "Last checked", "First granted")
	for _, r := range records {
		first := "-"
		if r.FirstGrantedAt != nil {
			first = r.FirstGrantedAt.Local().Format(time.DateTime)
		}
		t.Row(displayName(r.Target), stateStyle(r.State()).Render(string(r.State())),
			r.LastCheckedAt.Local().Format(time.DateTime), first)
	}
	fmt.Fprintln(w, t)
}

// stateStyle picks the style for a permission state.
func stateStyle(s permission.State) lipgloss.Style {
	switch s {
	case permission.StateGranted:
		return okStyle
	case permission.StateDenied:
		return errorStyle
	default:
		return mutedStyle
	}
}

// highlight writes AppleScript source with terminal colors.
func highlight(w io.Writer, src string) error {
	return quick.Highlight(w, src, "applescript", "terminal256", "monokai")
}
