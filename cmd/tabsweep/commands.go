package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/entrhq/tabsweep/pkg/browser"
	"github.com/entrhq/tabsweep/pkg/engine"
	"github.com/entrhq/tabsweep/pkg/script"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"browsers", "Show supported browsers, whether they run and their permission state", runBrowsers},
		{"list", "List windows and tabs", runList},
		{"close", "Close one tab: close <browser> <window> <tab>", runClose},
		{"close-domain", "Close every tab on a domain and its subdomains", runCloseDomain},
		{"close-others", "Close all tabs of a window but the active one: close-others <browser> <window>", runCloseOthers},
		{"activate", "Bring a tab to the front: activate <browser> <window> <tab>", runActivate},
		{"dupes", "Show tabs with identical addresses [-close]", runDupes},
		{"consolidate", "Keep at most N tabs per domain [-max N] [-close]", runConsolidate},
		{"heavy", "Rank tabs on resource-heavy sites first [-limit N]", runHeavy},
		{"stats", "Count tabs per browser, domain and site [-top N]", runStats},
		{"permissions", "Show recorded automation permissions [-probe]", runPermissions},
		{"copy", "Copy the addresses of tabs on a domain to the clipboard", runCopy},
		{"script", "Print the script sent to a browser [-kind enumerate|close|activate|probe]", runScript},
		{"watch", "Refresh periodically and report changes [-interval d]", runWatch},
		{"config", "Show or change settings: config [show|set section.key=value|heavy-add p|heavy-remove p|reset]", runConfig},
	}
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// parseTabArgs reads "<browser> <window> [tab]" positional arguments.
func parseTabArgs(args []string, withTab bool) (browser.TabKey, error) {
	want := 2
	if withTab {
		want = 3
	}
	if len(args) != want {
		if withTab {
			return browser.TabKey{}, fmt.Errorf("expected <browser> <window> <tab>, got %d arguments", len(args))
		}
		return browser.TabKey{}, fmt.Errorf("expected <browser> <window>, got %d arguments", len(args))
	}

	id := browser.VariantID(strings.ToLower(args[0]))
	if _, ok := browser.Lookup(id); !ok {
		return browser.TabKey{}, fmt.Errorf("unknown browser %q", args[0])
	}
	key := browser.TabKey{Browser: id}

	var err error
	if key.WindowIndex, err = positiveInt("window", args[1]); err != nil {
		return browser.TabKey{}, err
	}
	if withTab {
		if key.TabIndex, err = positiveInt("tab", args[2]); err != nil {
			return browser.TabKey{}, err
		}
	}
	return key, nil
}

func positiveInt(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s index must be a positive number, got %q", name, s)
	}
	return n, nil
}

func runBrowsers(ctx context.Context, a *app, _ []string) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	installed := make(map[browser.VariantID]bool)
	for _, id := range a.engine.Installed() {
		installed[id] = true
	}
	running := make(map[browser.VariantID]bool)
	for _, id := range a.engine.Running() {
		running[id] = true
	}

	var rows []browserRow
	for _, v := range browser.All() {
		rows = append(rows, browserRow{
			ID:         v.ID,
			Name:       a.engine.DisplayName(v.ID),
			Installed:  installed[v.ID],
			Running:    running[v.ID],
			Scriptable: v.SupportsTabScripting,
			Permission: a.tracker.Query(string(v.ID)),
		})
	}
	return a.render(rows, func(w io.Writer) { renderBrowsers(w, rows) })
}

func runList(ctx context.Context, a *app, _ []string) error {
	if err := a.refresh(ctx); err != nil {
		return err
	}
	windows := filterWindows(a.engine.Snapshot(), a.config.browserFilter())
	return a.render(windows, func(w io.Writer) { renderWindows(w, windows) })
}

func filterWindows(s browser.Snapshot, only []browser.VariantID) []browser.Window {
	s = s.Only(only...)
	var out []browser.Window
	for _, id := range s.Browsers() {
		ws, _ := s.Windows(id)
		out = append(out, ws...)
	}
	return out
}

func runClose(ctx context.Context, a *app, args []string) error {
	key, err := parseTabArgs(args, true)
	if err != nil {
		return err
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}
	tab, ok := a.engine.Snapshot().Find(key)
	if !ok {
		return fmt.Errorf("%s window %d tab %d: %w", key.Browser, key.WindowIndex, key.TabIndex, engine.ErrTabNotFound)
	}
	if err := a.engine.CloseTab(ctx, tab); err != nil {
		return err
	}
	fmt.Fprintln(a.out, okStyle.Render("Closed ")+tabLabel(tab))
	return nil
}

func runCloseDomain(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one domain")
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}
	closed, err := a.engine.CloseTabsByDomain(ctx, args[0], a.config.browserFilter()...)
	fmt.Fprintf(a.out, "%s %d tabs on %s\n", okStyle.Render("Closed"), closed, args[0])
	return err
}

func runCloseOthers(ctx context.Context, a *app, args []string) error {
	key, err := parseTabArgs(args, false)
	if err != nil {
		return err
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}
	closed, err := a.engine.CloseAllButActive(ctx, key.Browser, key.WindowIndex)
	fmt.Fprintf(a.out, "%s %d tabs in %s window %d\n", okStyle.Render("Closed"), closed, displayName(string(key.Browser)), key.WindowIndex)
	return err
}

func runActivate(ctx context.Context, a *app, args []string) error {
	key, err := parseTabArgs(args, true)
	if err != nil {
		return err
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}
	tab, ok := a.engine.Snapshot().Find(key)
	if !ok {
		return fmt.Errorf("%s window %d tab %d: %w", key.Browser, key.WindowIndex, key.TabIndex, engine.ErrTabNotFound)
	}
	return a.engine.ActivateTab(ctx, tab)
}

func runDupes(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("dupes", a.out)
	closeThem := fs.Bool("close", false, "Close every duplicate, keeping the first occurrence")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}

	only := a.config.browserFilter()
	if *closeThem {
		closed, err := a.engine.CloseDuplicates(ctx, only...)
		fmt.Fprintf(a.out, "%s %d duplicate tabs\n", okStyle.Render("Closed"), closed)
		return err
	}
	sets := a.engine.FindDuplicates(only...)
	return a.render(sets, func(w io.Writer) { renderDuplicates(w, sets) })
}

func runConsolidate(ctx context.Context, a *app, args []string) error {
	_, defaultMax, _, _ := a.settings.Settings()
	fs := newFlagSet("consolidate", a.out)
	maxPerDomain := fs.Int("max", defaultMax, "Tabs to keep per domain")
	closeThem := fs.Bool("close", false, "Close the selected tabs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}

	only := a.config.browserFilter()
	if *closeThem {
		closed, err := a.engine.ApplyConsolidation(ctx, *maxPerDomain, only...)
		fmt.Fprintf(a.out, "%s %d tabs\n", okStyle.Render("Closed"), closed)
		return err
	}
	tabs := a.engine.Consolidate(*maxPerDomain, only...)
	return a.render(tabs, func(w io.Writer) { renderTabs(w, "Tabs over the limit of "+strconv.Itoa(*maxPerDomain)+" per domain", tabs) })
}

func runHeavy(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("heavy", a.out)
	limit := fs.Int("limit", 10, "Number of tabs to show (0 for all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}
	ranked := a.engine.HeavyTabs(*limit, a.config.browserFilter()...)
	return a.render(ranked, func(w io.Writer) { renderHeavy(w, ranked) })
}

func runStats(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("stats", a.out)
	top := fs.Int("top", 10, "Number of domains to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}
	st := a.engine.Statistics(a.config.browserFilter()...)
	return a.render(st, func(w io.Writer) { renderStats(w, st, st.TopDomains(*top)) })
}

func runPermissions(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("permissions", a.out)
	probe := fs.Bool("probe", false, "Ask each running browser for automation access")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.start(ctx); err != nil {
		return err
	}

	if *probe {
		targets := a.config.browserFilter()
		if len(targets) == 0 {
			targets = a.engine.Running()
		}
		for _, id := range targets {
			state, err := a.engine.RequestPermission(ctx, id)
			if err != nil {
				reportError(a.out, err)
				continue
			}
			fmt.Fprintf(a.out, "%-16s %s\n", displayName(string(id)), stateStyle(state).Render(string(state)))
		}
		for _, n := range a.tracker.Notifications() {
			fmt.Fprintln(a.out, noticeStyle.Render(n.Message))
		}
		return nil
	}

	records := a.tracker.Records()
	return a.render(records, func(w io.Writer) { renderPermissions(w, records) })
}

func runCopy(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one domain")
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}
	tabs := engine.TabsByDomain(a.engine.Snapshot(), args[0], a.config.browserFilter()...)
	if len(tabs) == 0 {
		fmt.Fprintf(a.out, "No tabs on %s\n", args[0])
		return nil
	}

	urls := make([]string, len(tabs))
	for i, t := range tabs {
		urls[i] = t.URL
	}
	if err := clipboard.WriteAll(strings.Join(urls, "\n")); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	fmt.Fprintf(a.out, "%s %d addresses\n", okStyle.Render("Copied"), len(urls))
	return nil
}

func runScript(_ context.Context, a *app, args []string) error {
	fs := newFlagSet("script", a.out)
	kind := fs.String("kind", "enumerate", "Script kind: enumerate, close, activate or probe")
	appName := fs.String("app", "", "Application name to address (default: the browser's name)")
	window := fs.Int("window", 1, "Window index for close and activate")
	tab := fs.Int("tab", 1, "Tab index for close and activate")
	plain := fs.Bool("plain", false, "Print without syntax highlighting")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.config.Browser == "" {
		return fmt.Errorf("script needs -browser")
	}

	v, _ := browser.Lookup(browser.VariantID(a.config.Browser))
	if !v.SupportsTabScripting {
		return fmt.Errorf("%s: %w", v.DisplayName, engine.ErrUnsupportedTarget)
	}

	var src string
	switch *kind {
	case "enumerate":
		src = script.Enumerate(v, *appName)
	case "close":
		src = script.CloseTab(v, *appName, *window, *tab)
	case "activate":
		src = script.ActivateTab(v, *appName, *window, *tab)
	case "probe":
		name := *appName
		if name == "" {
			name = v.DisplayName
		}
		src = script.Probe(name)
	default:
		return fmt.Errorf("unknown script kind %q", *kind)
	}

	if *plain {
		_, err := io.WriteString(a.out, src)
		return err
	}
	return highlight(a.out, src)
}
