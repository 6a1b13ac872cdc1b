package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/entrhq/tabsweep/pkg/bridge"
	"github.com/entrhq/tabsweep/pkg/browser"
	"github.com/entrhq/tabsweep/pkg/script"
	"github.com/entrhq/tabsweep/pkg/types"
)

// Tabs are addressed by window and tab position. If the user moves or
// closes tabs between a refresh and a close, a position can name a
// different tab than the one enumerated; nothing here can detect that.

// CloseTab closes one tab of the current snapshot and refreshes.
func (e *Engine) CloseTab(ctx context.Context, tab browser.Tab) error {
	if _, ok := e.Snapshot().Find(tab.Key()); !ok {
		return fmt.Errorf("%s window %d tab %d: %w", tab.Browser, tab.WindowIndex, tab.Index, ErrTabNotFound)
	}

	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	if err := e.closeOne(ctx, tab); err != nil {
		return err
	}
	e.refreshAfterChange(ctx)
	return nil
}

// CloseTabs closes a batch of tabs and refreshes once at the end. Within
// each window tabs are closed from the highest index down, so pending
// positions stay valid. A failed close does not stop the batch and nothing
// is rolled back. It returns how many closes succeeded and every failure
// joined.
func (e *Engine) CloseTabs(ctx context.Context, tabs []browser.Tab) (int, error) {
	ordered := closeOrder(tabs)
	if len(ordered) == 0 {
		return 0, nil
	}

	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	closed := 0
	var errs []error
	for _, tab := range ordered {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := e.closeOne(ctx, tab); err != nil {
			errs = append(errs, err)
			continue
		}
		closed++
	}
	debugLog.Infof("closed %d of %d tabs", closed, len(ordered))

	e.refreshAfterChange(ctx)
	return closed, errors.Join(errs...)
}

// closeOrder removes repeated identities and sorts by browser, then window,
// then descending tab index.
func closeOrder(tabs []browser.Tab) []browser.Tab {
	seen := make(map[browser.TabKey]bool, len(tabs))
	out := make([]browser.Tab, 0, len(tabs))
	for _, t := range tabs {
		if seen[t.Key()] {
			continue
		}
		seen[t.Key()] = true
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Browser != b.Browser {
			return browser.Order(a.Browser) < browser.Order(b.Browser)
		}
		if a.WindowIndex != b.WindowIndex {
			return a.WindowIndex < b.WindowIndex
		}
		return a.Index > b.Index
	})
	return out
}

func (e *Engine) closeOne(ctx context.Context, tab browser.Tab) error {
	v, name, err := e.scriptable(tab.Browser)
	if err == nil {
		_, err = e.exec.Execute(ctx, script.CloseTab(v, name, tab.WindowIndex, tab.Index), string(v.ID))
		if bridge.IsPermissionDenied(err) {
			e.report(v.ID, false)
		}
	}
	if err != nil {
		err = fmt.Errorf("closing %s window %d tab %d: %w", tab.Browser, tab.WindowIndex, tab.Index, err)
		debugLog.Warnf("%v", err)
		e.emit(types.NewTabCloseFailedEvent(string(tab.Browser), tab.WindowIndex, tab.Index, err))
		return err
	}
	debugLog.Debugf("closed %s window %d tab %d (%s)", tab.Browser, tab.WindowIndex, tab.Index, tab.URL)
	e.emit(types.NewTabClosedEvent(string(tab.Browser), tab.WindowIndex, tab.Index).WithMetadata("url", tab.URL))
	return nil
}

// refreshAfterChange refreshes with refreshMu held. Refresh errors are
// recorded in LastErrors and logged; the change itself already happened.
func (e *Engine) refreshAfterChange(ctx context.Context) {
	if err := e.refreshAllLocked(ctx); err != nil {
		debugLog.Warnf("refresh after change: %v", err)
	}
}

// TabsByDomain returns the tabs of s whose host is domain or one of its
// subdomains, restricted to the given browsers when any are named.
func TabsByDomain(s browser.Snapshot, domain string, only ...browser.VariantID) []browser.Tab {
	allowed := make(map[browser.VariantID]bool, len(only))
	for _, id := range only {
		allowed[id] = true
	}
	var out []browser.Tab
	for _, t := range s.Tabs() {
		if len(allowed) > 0 && !allowed[t.Browser] {
			continue
		}
		if browser.MatchesDomain(t.Domain(), domain) {
			out = append(out, t)
		}
	}
	return out
}

// CloseTabsByDomain closes every tab on domain or its subdomains, in the
// given browsers only when any are named.
func (e *Engine) CloseTabsByDomain(ctx context.Context, domain string, only ...browser.VariantID) (int, error) {
	tabs := TabsByDomain(e.Snapshot(), domain, only...)
	debugLog.Infof("closing %d tabs on %s", len(tabs), domain)
	return e.CloseTabs(ctx, tabs)
}

// CloseAllButActive closes every tab of a window except its active one. A
// window whose active tab is unknown is left alone.
func (e *Engine) CloseAllButActive(ctx context.Context, id browser.VariantID, windowIndex int) (int, error) {
	w, ok := e.Snapshot().Window(id, windowIndex)
	if !ok {
		return 0, fmt.Errorf("%s window %d: %w", id, windowIndex, ErrWindowNotFound)
	}
	active, ok := w.ActiveTab()
	if !ok {
		return 0, fmt.Errorf("%s window %d has no known active tab: %w", id, windowIndex, ErrTabNotFound)
	}

	var victims []browser.Tab
	for _, t := range w.Tabs {
		if !t.Same(active) {
			victims = append(victims, t)
		}
	}
	return e.CloseTabs(ctx, victims)
}

// ActivateTab brings a tab and its window to the front, then refreshes the
// tab's browser so active flags are current.
func (e *Engine) ActivateTab(ctx context.Context, tab browser.Tab) error {
	if _, ok := e.Snapshot().Find(tab.Key()); !ok {
		return fmt.Errorf("%s window %d tab %d: %w", tab.Browser, tab.WindowIndex, tab.Index, ErrTabNotFound)
	}
	v, name, err := e.scriptable(tab.Browser)
	if err != nil {
		return fmt.Errorf("%s: %w", tab.Browser, err)
	}

	if _, err := e.exec.Execute(ctx, script.ActivateTab(v, name, tab.WindowIndex, tab.Index), string(v.ID)); err != nil {
		if bridge.IsPermissionDenied(err) {
			e.report(v.ID, false)
		}
		return fmt.Errorf("activating %s window %d tab %d: %w", tab.Browser, tab.WindowIndex, tab.Index, err)
	}
	e.emit(types.NewTabActivatedEvent(string(v.ID), tab.WindowIndex, tab.Index))

	if err := e.Refresh(ctx, v.ID); err != nil {
		debugLog.Warnf("refresh after activate: %v", err)
	}
	return nil
}

// CloseDuplicates closes every duplicate FindDuplicates reports for the
// same browsers.
func (e *Engine) CloseDuplicates(ctx context.Context, only ...browser.VariantID) (int, error) {
	var victims []browser.Tab
	for _, set := range e.FindDuplicates(only...) {
		victims = append(victims, set.Duplicates...)
	}
	return e.CloseTabs(ctx, victims)
}

// ApplyConsolidation closes the tabs Consolidate selects for the same
// browsers.
func (e *Engine) ApplyConsolidation(ctx context.Context, maxPerDomain int, only ...browser.VariantID) (int, error) {
	return e.CloseTabs(ctx, e.Consolidate(maxPerDomain, only...))
}
