package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/entrhq/tabsweep/pkg/types"
)

func runWatch(ctx context.Context, a *app, args []string) error {
	_, _, interval, _ := a.settings.Settings()
	fs := newFlagSet("watch", a.out)
	fs.DurationVar(&interval, "interval", interval, "Time between refreshes")
	verbose := fs.Bool("v", false, "Also print refresh events")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if interval < time.Second {
		return fmt.Errorf("interval must be at least 1s, got %s", interval)
	}
	if err := a.start(ctx); err != nil {
		return err
	}

	w := &watcher{out: a.out, verbose: *verbose, seen: make(map[string]bool), lastTotal: -1}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fmt.Fprintln(a.out, mutedStyle.Render(fmt.Sprintf("Watching every %s, press Ctrl+C to stop", interval)))
	w.tick(ctx, a)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-a.events:
			w.event(ev)
		case <-ticker.C:
			w.tick(ctx, a)
		}
	}
}

// watcher prints what changed between refreshes.
type watcher struct {
	out       io.Writer
	verbose   bool
	seen      map[string]bool
	lastTotal int
}

func (w *watcher) tick(ctx context.Context, a *app) {
	if err := a.detect(ctx); err != nil {
		return
	}
	// Per-browser failures arrive as refresh_failed events.
	_ = a.engine.RefreshAll(ctx)

	st := a.engine.Statistics(a.config.browserFilter()...)
	if st.Total != w.lastTotal {
		fmt.Fprintf(w.out, "%s %s %d tabs in %d windows\n",
			mutedStyle.Render(time.Now().Format(time.TimeOnly)), headerStyle.Render("Total"), st.Total, st.Windows)
		w.lastTotal = st.Total
	}

	for _, n := range a.tracker.Notifications() {
		if w.seen[n.ID] {
			continue
		}
		w.seen[n.ID] = true
		fmt.Fprintln(w.out, noticeStyle.Render(n.Message))
	}
}

func (w *watcher) event(ev *types.Event) {
	if ev == nil {
		return
	}
	if ev.IsRefreshEvent() && !ev.IsErrorEvent() && !w.verbose {
		return
	}
	fmt.Fprintln(w.out, formatEvent(ev))
}

func formatEvent(ev *types.Event) string {
	name := displayName(ev.Target)
	switch ev.Type {
	case types.EventTypeTargetsDetected:
		return mutedStyle.Render(fmt.Sprintf("Detected %d installed browsers", ev.Count))
	case types.EventTypeRefreshStart:
		if ev.Target == "" {
			return mutedStyle.Render("Refreshing all browsers")
		}
		return mutedStyle.Render("Refreshing " + name)
	case types.EventTypeRefreshComplete:
		return mutedStyle.Render(fmt.Sprintf("%s: %d windows in %s", name, ev.Count, ev.Duration.Round(time.Millisecond)))
	case types.EventTypeTabClosed:
		return okStyle.Render("Closed ") + fmt.Sprintf("%s window %d tab %d", name, ev.WindowIndex, ev.TabIndex)
	case types.EventTypeTabActivated:
		return okStyle.Render("Activated ") + fmt.Sprintf("%s window %d tab %d", name, ev.WindowIndex, ev.TabIndex)
	case types.EventTypePermissionGranted:
		return okStyle.Render("Automation allowed for " + name)
	case types.EventTypePermissionDenied:
		return errorStyle.Render("Automation denied for " + name)
	}
	if ev.Error != nil {
		return errorStyle.Render(fmt.Sprintf("%s: %v", name, ev.Error))
	}
	return string(ev.Type)
}
