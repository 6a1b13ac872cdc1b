package engine

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/entrhq/tabsweep/pkg/bridge"
	"github.com/entrhq/tabsweep/pkg/browser"
	"github.com/entrhq/tabsweep/pkg/permission"
	"github.com/entrhq/tabsweep/pkg/response"
	"github.com/entrhq/tabsweep/pkg/types"
	"github.com/stretchr/testify/require"
)

var closePattern = regexp.MustCompile(`close tab (\d+) of (?:active space of )?window (\d+)`)

type call struct {
	target string
	kind   string
	src    string
}

// fakeBrowsers answers scripts from an in-memory model of each browser's
// windows. Closing a tab renumbers the tabs after it, as real browsers do.
type fakeBrowsers struct {
	mu       sync.Mutex
	windows  map[browser.VariantID][]browser.Window
	fail     map[browser.VariantID]error
	closeErr map[browser.TabKey]error
	calls    []call
}

func newFakeBrowsers() *fakeBrowsers {
	return &fakeBrowsers{
		windows:  make(map[browser.VariantID][]browser.Window),
		fail:     make(map[browser.VariantID]error),
		closeErr: make(map[browser.TabKey]error),
	}
}

func (f *fakeBrowsers) Execute(_ context.Context, src, target string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := browser.VariantID(target)

	kind := "enumerate"
	switch {
	case strings.Contains(src, "close tab"):
		kind = "close"
	case strings.Contains(src, "activate"):
		kind = "activate"
	case strings.Contains(src, "count windows"):
		kind = "probe"
	}
	f.calls = append(f.calls, call{target: target, kind: kind, src: src})

	if err := f.fail[id]; err != nil {
		return "", err
	}

	switch kind {
	case "close":
		m := closePattern.FindStringSubmatch(src)
		tabIdx, _ := strconv.Atoi(m[1])
		winIdx, _ := strconv.Atoi(m[2])
		key := browser.TabKey{Browser: id, WindowIndex: winIdx, TabIndex: tabIdx}
		if err := f.closeErr[key]; err != nil {
			return "", err
		}
		f.removeLocked(key)
		return "", nil
	case "enumerate":
		return response.Render(f.windows[id]), nil
	case "probe":
		return strconv.Itoa(len(f.windows[id])), nil
	}
	return "", nil
}

func (f *fakeBrowsers) removeLocked(key browser.TabKey) {
	for wi, w := range f.windows[key.Browser] {
		if w.Index != key.WindowIndex {
			continue
		}
		var kept []browser.Tab
		for _, t := range w.Tabs {
			switch {
			case t.Index == key.TabIndex:
				continue
			case t.Index > key.TabIndex:
				t.Index--
			}
			kept = append(kept, t)
		}
		f.windows[key.Browser][wi].Tabs = kept
	}
}

func (f *fakeBrowsers) set(id browser.VariantID, windows ...browser.Window) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows[id] = windows
}

func (f *fakeBrowsers) setFail(id browser.VariantID, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, id)
		return
	}
	f.fail[id] = err
}

func (f *fakeBrowsers) urls(id browser.VariantID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, w := range f.windows[id] {
		for _, t := range w.Tabs {
			out = append(out, t.URL)
		}
	}
	return out
}

func (f *fakeBrowsers) last(kind string) (call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].kind == kind {
			return f.calls[i], true
		}
	}
	return call{}, false
}

func (f *fakeBrowsers) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.kind == kind {
			n++
		}
	}
	return n
}

type fakeLocator struct {
	installed map[string]bool
	running   map[string]string
	err       map[string]error
}

func (l *fakeLocator) Installed(_ context.Context, bundleID string) (bool, error) {
	if err := l.err[bundleID]; err != nil {
		return false, err
	}
	return l.installed[bundleID], nil
}

func (l *fakeLocator) RunningName(_ context.Context, bundleID string) (string, bool, error) {
	name, ok := l.running[bundleID]
	return name, ok, nil
}

// locatorFor reports every listed variant installed and running under its
// default name.
func locatorFor(ids ...browser.VariantID) *fakeLocator {
	l := &fakeLocator{installed: map[string]bool{}, running: map[string]string{}}
	for _, id := range ids {
		v, _ := browser.Lookup(id)
		l.installed[v.BundleID] = true
		l.running[v.BundleID] = v.DisplayName
	}
	return l
}

// window builds a window of tabs from alternating title/url pairs. The
// first tab is active.
func window(id browser.VariantID, index int, titleURL ...string) browser.Window {
	w := browser.Window{Browser: id, Index: index, Title: "W" + strconv.Itoa(index), ActiveTabIndex: 1}
	for i := 0; i+1 < len(titleURL); i += 2 {
		n := i/2 + 1
		w.Tabs = append(w.Tabs, browser.Tab{
			Browser:     id,
			WindowIndex: index,
			Index:       n,
			Title:       titleURL[i],
			URL:         titleURL[i+1],
			Active:      n == 1,
		})
	}
	return w
}

type harness struct {
	engine   *Engine
	browsers *fakeBrowsers
	tracker  *permission.Tracker
	store    *permission.MemoryStore
	events   chan *types.Event
}

func newHarness(t *testing.T, running ...browser.VariantID) *harness {
	t.Helper()
	h := &harness{
		browsers: newFakeBrowsers(),
		store:    permission.NewMemoryStore(),
		events:   make(chan *types.Event, 256),
	}
	var err error
	h.tracker, err = permission.NewTracker(h.store)
	require.NoError(t, err)
	h.engine = New(h.browsers, locatorFor(running...), h.tracker, WithEventChannel(h.events))
	t.Cleanup(func() {
		h.engine.Close()
		h.tracker.Close()
	})
	_, err = h.engine.DetectTargets(context.Background())
	require.NoError(t, err)
	return h
}

func (h *harness) drain() []*types.Event {
	var out []*types.Event
	for {
		select {
		case ev := <-h.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func denied(target string) error {
	return bridge.Classify(target, bridge.CodeNotAuthorized, "Not authorized to send Apple events")
}

func tabURLs(tabs []browser.Tab) []string {
	out := make([]string, len(tabs))
	for i, t := range tabs {
		out[i] = t.URL
	}
	return out
}
