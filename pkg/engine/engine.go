// Package engine discovers installed browsers, keeps a snapshot of their
// windows and tabs, and closes or activates tabs through the scripting
// bridge.
//
// The snapshot has a single writer. Refreshes are serialised, and every
// change publishes a new immutable browser.Snapshot, so readers calling
// Snapshot never observe a half-applied refresh.
package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/entrhq/tabsweep/pkg/bridge"
	"github.com/entrhq/tabsweep/pkg/browser"
	"github.com/entrhq/tabsweep/pkg/config"
	"github.com/entrhq/tabsweep/pkg/logging"
	"github.com/entrhq/tabsweep/pkg/permission"
	"github.com/entrhq/tabsweep/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("engine")
	if err != nil {
		debugLog.Warnf("Failed to initialize engine logger, using stderr fallback: %v", err)
	}
}

// Engine owns the tab snapshot. It is safe for concurrent use.
type Engine struct {
	exec    bridge.Executor
	locator bridge.Locator
	tracker *permission.Tracker
	heavy   *HeavyMatcher
	events  chan<- *types.Event

	// refreshMu serialises refreshes and batch closes.
	refreshMu sync.Mutex

	mu         sync.RWMutex
	snapshot   browser.Snapshot
	installed  map[browser.VariantID]bool
	running    map[browser.VariantID]string
	lastErrors map[browser.VariantID]error
	closed     bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithEventChannel delivers engine events to ch. Sends never block; events
// are dropped when ch is full.
func WithEventChannel(ch chan<- *types.Event) Option {
	return func(e *Engine) { e.events = ch }
}

// WithHeavyMatcher replaces the default heavy-site patterns.
func WithHeavyMatcher(m *HeavyMatcher) Option {
	return func(e *Engine) {
		if m != nil {
			e.heavy = m
		}
	}
}

// New creates an engine. Targets are unknown until DetectTargets runs. The
// engine registers a grant callback on tracker that refreshes a newly
// granted browser that has no snapshot entry yet.
func New(exec bridge.Executor, locator bridge.Locator, tracker *permission.Tracker, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		exec:       exec,
		locator:    locator,
		tracker:    tracker,
		heavy:      MustHeavyMatcher(config.DefaultHeavyDomains),
		snapshot:   browser.NewSnapshot(nil),
		installed:  make(map[browser.VariantID]bool),
		running:    make(map[browser.VariantID]string),
		lastErrors: make(map[browser.VariantID]error),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	tracker.OnGrant(e.handleGrant)
	return e
}

// Close stops background refreshes started by grant callbacks and waits
// for them. It does not close the executor or the tracker.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.cancel()
	e.wg.Wait()
	return nil
}

// DetectTargets finds which browsers are installed and which of those are
// running, remembering the name each running browser registered under. It
// returns the installed variants in enumeration order. Locator failures for
// one bundle do not stop detection of the rest and are returned joined.
func (e *Engine) DetectTargets(ctx context.Context) ([]browser.VariantID, error) {
	installed := make(map[browser.VariantID]bool)
	running := make(map[browser.VariantID]string)
	var errs []error

	for _, v := range browser.All() {
		for _, bundleID := range v.BundleIDs() {
			ok, err := e.locator.Installed(ctx, bundleID)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if ok {
				installed[v.ID] = true
				break
			}
		}
		if !installed[v.ID] {
			continue
		}
		for _, bundleID := range v.BundleIDs() {
			name, ok, err := e.locator.RunningName(ctx, bundleID)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if ok {
				running[v.ID] = name
				break
			}
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
	}

	e.mu.Lock()
	e.installed = installed
	e.running = running
	e.mu.Unlock()

	ids := e.Installed()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	debugLog.Infof("detected %d installed browsers, %d running", len(installed), len(running))
	e.emit(types.NewTargetsDetectedEvent(names))
	return ids, errors.Join(errs...)
}

// Installed returns the installed variants in enumeration order.
func (e *Engine) Installed() []browser.VariantID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.orderedLocked(func(id browser.VariantID) bool { return e.installed[id] })
}

// Running returns the running variants in enumeration order.
func (e *Engine) Running() []browser.VariantID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.orderedLocked(func(id browser.VariantID) bool {
		_, ok := e.running[id]
		return ok
	})
}

func (e *Engine) orderedLocked(keep func(browser.VariantID) bool) []browser.VariantID {
	var ids []browser.VariantID
	for _, v := range browser.All() {
		if keep(v.ID) {
			ids = append(ids, v.ID)
		}
	}
	return ids
}

// DisplayName returns the name a running browser registered under, or the
// variant's default name.
func (e *Engine) DisplayName(id browser.VariantID) string {
	e.mu.RLock()
	name, ok := e.running[id]
	e.mu.RUnlock()
	if ok && name != "" {
		return name
	}
	if v, ok := browser.Lookup(id); ok {
		return v.DisplayName
	}
	return string(id)
}

// Snapshot returns the current snapshot.
func (e *Engine) Snapshot() browser.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// LastErrors returns the error of the latest failed fetch per browser.
// Successful fetches clear the browser's entry.
func (e *Engine) LastErrors() map[browser.VariantID]error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[browser.VariantID]error, len(e.lastErrors))
	for id, err := range e.lastErrors {
		out[id] = err
	}
	return out
}

// LastError returns the latest fetch error of one browser.
func (e *Engine) LastError(id browser.VariantID) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastErrors[id]
}

// Tracker returns the permission tracker the engine reports to.
func (e *Engine) Tracker() *permission.Tracker {
	return e.tracker
}

// scriptable resolves id to a variant the engine can drive right now.
func (e *Engine) scriptable(id browser.VariantID) (browser.Variant, string, error) {
	v, ok := browser.Lookup(id)
	if !ok || !v.SupportsTabScripting || v.Dialect == browser.DialectNone {
		return browser.Variant{}, "", ErrUnsupportedTarget
	}
	e.mu.RLock()
	installed := e.installed[id]
	name, running := e.running[id]
	e.mu.RUnlock()
	if !running {
		if !installed {
			return browser.Variant{}, "", ErrTargetNotInstalled
		}
		return browser.Variant{}, "", ErrTargetNotRunning
	}
	if name == "" {
		name = v.DisplayName
	}
	return v, name, nil
}

func (e *Engine) handleGrant(target string) {
	id := browser.VariantID(target)
	e.emit(types.NewPermissionGrantedEvent(target))

	if _, ok := e.Snapshot().Windows(id); ok {
		return
	}
	if _, _, err := e.scriptable(id); err != nil {
		return
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		debugLog.Infof("refreshing %s after permission grant", id)
		if err := e.Refresh(e.ctx, id); err != nil {
			debugLog.Warnf("refresh of %s after grant failed: %v", id, err)
		}
	}()
}

func (e *Engine) emit(ev *types.Event) {
	if e.events == nil {
		return
	}
	select {
	case e.events <- ev:
	default:
		debugLog.Debugf("event channel full, dropped %s", ev.Type)
	}
}
