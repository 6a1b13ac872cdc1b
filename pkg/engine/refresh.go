package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/tabsweep/pkg/bridge"
	"github.com/entrhq/tabsweep/pkg/browser"
	"github.com/entrhq/tabsweep/pkg/permission"
	"github.com/entrhq/tabsweep/pkg/response"
	"github.com/entrhq/tabsweep/pkg/script"
	"github.com/entrhq/tabsweep/pkg/types"
)

// RefreshAll fetches every running, scriptable browser one after another.
// A failing browser does not stop the others; all failures are returned
// joined. Browsers that are no longer running are dropped from the
// snapshot. Overlapping calls run one at a time in arrival order.
func (e *Engine) RefreshAll(ctx context.Context) error {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()
	return e.refreshAllLocked(ctx)
}

func (e *Engine) refreshAllLocked(ctx context.Context) error {
	e.emit(types.NewRefreshStartEvent(""))
	e.pruneStopped()

	var errs []error
	for _, id := range e.Running() {
		v, name, err := e.scriptable(id)
		if err != nil {
			continue
		}
		if err := e.fetch(ctx, v, name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
	}
	return errors.Join(errs...)
}

// Refresh fetches one browser.
func (e *Engine) Refresh(ctx context.Context, id browser.VariantID) error {
	v, name, err := e.scriptable(id)
	if err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()
	e.emit(types.NewRefreshStartEvent(string(id)))
	return e.fetch(ctx, v, name)
}

func (e *Engine) pruneStopped() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range e.snapshot.Browsers() {
		if _, ok := e.running[id]; !ok {
			e.snapshot = e.snapshot.Without(id)
			debugLog.Debugf("dropped %s from snapshot, no longer running", id)
		}
	}
}

// fetch enumerates one browser. On success the browser's windows are
// replaced and the grant is reported. A permission failure is reported to
// the tracker and any earlier windows are kept, as they are for any other
// failure.
func (e *Engine) fetch(ctx context.Context, v browser.Variant, name string) error {
	start := time.Now()
	out, err := e.exec.Execute(ctx, script.Enumerate(v, name), string(v.ID))
	if err != nil {
		e.mu.Lock()
		e.lastErrors[v.ID] = err
		e.mu.Unlock()

		if bridge.IsPermissionDenied(err) {
			debugLog.Warnf("automation of %s denied: %v", v.ID, err)
			e.report(v.ID, false)
			e.emit(types.NewPermissionDeniedEvent(string(v.ID), err))
		} else {
			debugLog.Errorf("enumerating %s failed: %v", v.ID, err)
		}
		e.emit(types.NewRefreshFailedEvent(string(v.ID), err))
		return err
	}

	windows := response.Parse(v.ID, out)
	e.mu.Lock()
	e.snapshot = e.snapshot.With(v.ID, windows)
	delete(e.lastErrors, v.ID)
	e.mu.Unlock()

	elapsed := time.Since(start)
	debugLog.Debugf("refreshed %s: %d windows in %v", v.ID, len(windows), elapsed)
	e.emit(types.NewRefreshCompleteEvent(string(v.ID), len(windows), elapsed))

	// Installed before reporting so the grant callback sees the entry.
	e.report(v.ID, true)
	return nil
}

func (e *Engine) report(id browser.VariantID, granted bool) {
	if err := e.tracker.Report(string(id), granted); err != nil {
		debugLog.Errorf("failed to record permission for %s: %v", id, err)
	}
}

// RequestPermission runs a trivial script against a running browser so the
// OS asks the user for automation consent, and records the outcome. A
// refusal is a result, not an error: it returns permission.StateDenied with
// a nil error.
func (e *Engine) RequestPermission(ctx context.Context, id browser.VariantID) (permission.State, error) {
	v, name, err := e.scriptable(id)
	if err != nil {
		return e.tracker.Query(string(id)), fmt.Errorf("%s: %w", id, err)
	}

	_, err = e.exec.Execute(ctx, script.Probe(name), string(v.ID))
	switch {
	case err == nil:
		e.report(v.ID, true)
		return permission.StateGranted, nil
	case bridge.IsPermissionDenied(err):
		e.report(v.ID, false)
		e.emit(types.NewPermissionDeniedEvent(string(v.ID), err))
		return permission.StateDenied, nil
	default:
		return e.tracker.Query(string(id)), fmt.Errorf("probing %s: %w", id, err)
	}
}
