// Package permission tracks per-application automation consent.
//
// Each target moves between three states: unknown (never observed), denied
// and granted. Users can revoke consent later, so granted can fall back to
// denied, but the first grant time of a target is never changed once set.
// A transition into granted marks the target as recently granted for a short
// window, queues a self-dismissing notification and calls every registered
// grant callback.
package permission

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/entrhq/tabsweep/pkg/logging"
	"github.com/google/uuid"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("permission")
	if err != nil {
		debugLog.Warnf("Failed to initialize permission logger, using stderr fallback: %v", err)
	}
}

const (
	// DefaultRecentGrantWindow is how long a target stays "recently granted".
	DefaultRecentGrantWindow = 30 * time.Second
	// DefaultNotificationTTL is how long a grant notification stays queued.
	DefaultNotificationTTL = 5 * time.Second
)

// GrantCallback is called with the target after it transitions to granted.
type GrantCallback func(target string)

// Tracker owns the permission table. It is safe for concurrent use.
type Tracker struct {
	mu sync.Mutex

	store   Store
	records map[string]Record

	recent        map[string]*time.Timer
	notifications []Notification
	noteTimers    map[string]*time.Timer
	callbacks     []GrantCallback

	now             func() time.Time
	namer           func(target string) string
	recentWindow    time.Duration
	notificationTTL time.Duration
	closed          bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithRecentGrantWindow sets how long a new grant is reported as recent.
func WithRecentGrantWindow(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.recentWindow = d
		}
	}
}

// WithNotificationTTL sets how long grant notifications stay queued.
func WithNotificationTTL(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.notificationTTL = d
		}
	}
}

// WithNamer sets how targets are named in notification messages.
func WithNamer(namer func(target string) string) Option {
	return func(t *Tracker) { t.namer = namer }
}

// NewTracker loads the table from store.
func NewTracker(store Store, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		store:           store,
		recent:          make(map[string]*time.Timer),
		noteTimers:      make(map[string]*time.Timer),
		now:             func() time.Time { return time.Now().UTC() },
		namer:           func(target string) string { return target },
		recentWindow:    DefaultRecentGrantWindow,
		notificationTTL: DefaultNotificationTTL,
	}
	for _, opt := range opts {
		opt(t)
	}

	records, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}
	t.records = records
	debugLog.Debugf("loaded %d permission records", len(records))
	return t, nil
}

// OnGrant registers cb. Callbacks run synchronously in registration order,
// on the goroutine that reported the grant, after the tracker lock is
// released.
func (t *Tracker) OnGrant(cb GrantCallback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callbacks = append(t.callbacks, cb)
}

// Report records an observation for target and persists the table. The
// in-memory state is updated even when saving fails; the save error is
// returned.
func (t *Tracker) Report(target string, granted bool) error {
	t.mu.Lock()

	now := t.now()
	prev, existed := t.records[target]
	transition := granted && (!existed || !prev.Granted)

	rec := prev
	rec.Target = target
	rec.Granted = granted
	rec.LastCheckedAt = now
	if granted && rec.FirstGrantedAt == nil {
		first := now
		rec.FirstGrantedAt = &first
	}
	t.records[target] = rec

	saveErr := t.store.Save(t.copyRecordsLocked())
	if saveErr != nil {
		debugLog.Errorf("failed to persist permission for %s: %v", target, saveErr)
	}

	var callbacks []GrantCallback
	if transition && !t.closed {
		t.markRecentLocked(target)
		t.enqueueLocked(target, now)
		callbacks = append(callbacks, t.callbacks...)
		debugLog.Infof("permission granted for %s (previous state %s)", target, stateOf(prev, existed))
	} else if existed && prev.Granted && !granted {
		debugLog.Warnf("permission revoked for %s", target)
	}
	t.mu.Unlock()

	for _, cb := range callbacks {
		cb(target)
	}

	if saveErr != nil {
		return fmt.Errorf("failed to save permissions: %w", saveErr)
	}
	return nil
}

func stateOf(r Record, existed bool) State {
	if !existed {
		return StateUnknown
	}
	return r.State()
}

func (t *Tracker) copyRecordsLocked() map[string]Record {
	out := make(map[string]Record, len(t.records))
	for k, v := range t.records {
		out[k] = v
	}
	return out
}

func (t *Tracker) markRecentLocked(target string) {
	if old, ok := t.recent[target]; ok {
		old.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(t.recentWindow, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.recent[target] == timer {
			delete(t.recent, target)
		}
	})
	t.recent[target] = timer
}

func (t *Tracker) enqueueLocked(target string, now time.Time) {
	n := Notification{
		ID:        uuid.New().String(),
		Target:    target,
		Message:   fmt.Sprintf("Automation access granted for %s", t.namer(target)),
		CreatedAt: now,
	}
	t.notifications = append(t.notifications, n)
	t.noteTimers[n.ID] = time.AfterFunc(t.notificationTTL, func() {
		t.Dismiss(n.ID)
	})
}

// Query returns the last known state of target without checking anything.
func (t *Tracker) Query(target string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[target]
	return stateOf(rec, ok)
}

// Record returns the stored record of target.
func (t *Tracker) Record(target string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[target]
	return rec, ok
}

// Records returns every record sorted by target.
func (t *Tracker) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}

// RecentlyGranted reports whether target transitioned to granted within the
// recent-grant window.
func (t *Tracker) RecentlyGranted(target string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.recent[target]
	return ok
}

// Notifications returns the pending notifications, oldest first.
func (t *Tracker) Notifications() []Notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Notification, len(t.notifications))
	copy(out, t.notifications)
	return out
}

// Dismiss removes a notification. It reports whether it was still pending.
func (t *Tracker) Dismiss(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.noteTimers[id]; ok {
		timer.Stop()
		delete(t.noteTimers, id)
	}
	for i, n := range t.notifications {
		if n.ID == id {
			t.notifications = append(t.notifications[:i], t.notifications[i+1:]...)
			return true
		}
	}
	return false
}

// Close stops all pending timers. Reports after Close still update and
// persist records but no longer raise notifications or callbacks.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for target, timer := range t.recent {
		timer.Stop()
		delete(t.recent, target)
	}
	for id, timer := range t.noteTimers {
		timer.Stop()
		delete(t.noteTimers, id)
	}
	t.notifications = nil
	return nil
}
