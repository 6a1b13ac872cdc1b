package main

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"testing"

	"github.com/entrhq/tabsweep/pkg/browser"
	appconfig "github.com/entrhq/tabsweep/pkg/config"
	"github.com/entrhq/tabsweep/pkg/engine"
	"github.com/entrhq/tabsweep/pkg/permission"
	"github.com/entrhq/tabsweep/pkg/response"
	"github.com/stretchr/testify/require"
)

var closeTabPattern = regexp.MustCompile(`close tab (\d+) of (?:active space of )?window (\d+)`)

// scriptedBrowsers answers enumerate and close scripts from in-memory
// windows and records which browser every close went to.
type scriptedBrowsers struct {
	mu      sync.Mutex
	windows map[browser.VariantID][]browser.Window
	closes  []browser.TabKey
}

func (f *scriptedBrowsers) Execute(_ context.Context, src, target string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := browser.VariantID(target)

	m := closeTabPattern.FindStringSubmatch(src)
	if m == nil {
		return response.Render(f.windows[id]), nil
	}
	tabIdx, _ := strconv.Atoi(m[1])
	winIdx, _ := strconv.Atoi(m[2])
	f.closes = append(f.closes, browser.TabKey{Browser: id, WindowIndex: winIdx, TabIndex: tabIdx})
	for wi, w := range f.windows[id] {
		if w.Index != winIdx {
			continue
		}
		var kept []browser.Tab
		for _, t := range w.Tabs {
			if t.Index == tabIdx {
				continue
			}
			if t.Index > tabIdx {
				t.Index--
			}
			kept = append(kept, t)
		}
		f.windows[id][wi].Tabs = kept
	}
	return "", nil
}

func (f *scriptedBrowsers) closedBrowsers() []browser.VariantID {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]browser.VariantID, len(f.closes))
	for i, k := range f.closes {
		out[i] = k.Browser
	}
	return out
}

// sameDomainTabs builds one window per browser holding n tabs on host.
func sameDomainTabs(host string, n int, ids ...browser.VariantID) *scriptedBrowsers {
	f := &scriptedBrowsers{windows: make(map[browser.VariantID][]browser.Window)}
	for _, id := range ids {
		w := browser.Window{Browser: id, Index: 1, Title: "main", ActiveTabIndex: 1}
		for i := 1; i <= n; i++ {
			w.Tabs = append(w.Tabs, browser.Tab{
				Browser:     id,
				WindowIndex: 1,
				Index:       i,
				Title:       "page " + strconv.Itoa(i),
				URL:         "https://" + host + "/" + strconv.Itoa(i),
				Active:      i == 1,
			})
		}
		f.windows[id] = []browser.Window{w}
	}
	return f
}

type stubLocator struct {
	running map[string]string
	err     map[string]error
}

func (l *stubLocator) Installed(_ context.Context, bundleID string) (bool, error) {
	if err := l.err[bundleID]; err != nil {
		return false, err
	}
	_, ok := l.running[bundleID]
	return ok, nil
}

func (l *stubLocator) RunningName(_ context.Context, bundleID string) (string, bool, error) {
	name, ok := l.running[bundleID]
	return name, ok, nil
}

func runningLocator(ids ...browser.VariantID) *stubLocator {
	l := &stubLocator{running: map[string]string{}, err: map[string]error{}}
	for _, id := range ids {
		v, _ := browser.Lookup(id)
		l.running[v.BundleID] = v.DisplayName
	}
	return l
}

type testApp struct {
	*app
	out    *bytes.Buffer
	errOut *bytes.Buffer
	path   string
}

// newSettingsApp builds an app with a config manager over a temp file and no
// engine.
func newSettingsApp(t *testing.T) *testApp {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := appconfig.NewFileStore(path)
	require.NoError(t, err)
	manager, err := appconfig.NewDefaultManager(store)
	require.NoError(t, err)

	engineSection, _ := manager.GetSection(appconfig.SectionIDEngine)
	permSection, _ := manager.GetSection(appconfig.SectionIDPermissions)

	ta := &testApp{out: &bytes.Buffer{}, errOut: &bytes.Buffer{}, path: path}
	ta.app = &app{
		config:   &Config{Output: formatText, LogLevel: "info"},
		out:      ta.out,
		errOut:   ta.errOut,
		manager:  manager,
		settings: engineSection.(*appconfig.EngineSection),
		perms:    permSection.(*appconfig.PermissionsSection),
	}
	return ta
}

// newEngineApp builds an app whose engine talks to exec and locator, with
// detection already done.
func newEngineApp(t *testing.T, browserFlag string, exec *scriptedBrowsers, locator *stubLocator) *testApp {
	t.Helper()
	ta := newSettingsApp(t)
	ta.config.Browser = browserFlag

	var err error
	ta.tracker, err = permission.NewTracker(permission.NewMemoryStore())
	require.NoError(t, err)
	ta.attach(exec, locator, engine.MustHeavyMatcher(appconfig.DefaultHeavyDomains))
	t.Cleanup(ta.close)

	require.NoError(t, ta.detect(context.Background()))
	return ta
}

func hasAll(ids []browser.VariantID, want browser.VariantID) bool {
	for _, id := range ids {
		if id != want {
			return false
		}
	}
	return true
}
