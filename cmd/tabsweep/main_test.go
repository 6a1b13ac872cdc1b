package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/entrhq/tabsweep/pkg/bridge"
	"github.com/entrhq/tabsweep/pkg/browser"
	"github.com/entrhq/tabsweep/pkg/engine"
	"github.com/entrhq/tabsweep/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"defaults", Config{Output: "text", LogLevel: "info"}, false},
		{"yaml with browser", Config{Output: "yaml", LogLevel: "debug", Browser: "chrome"}, false},
		{"unknown format", Config{Output: "xml", LogLevel: "info"}, true},
		{"unknown browser", Config{Output: "text", LogLevel: "info", Browser: "netscape"}, true},
		{"bad level", Config{Output: "text", LogLevel: "loud"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBrowserFilter(t *testing.T) {
	assert.Nil(t, (&Config{}).browserFilter())
	assert.Equal(t, []browser.VariantID{browser.Safari}, (&Config{Browser: "safari"}).browserFilter())
}

func TestParseTabArgs(t *testing.T) {
	key, err := parseTabArgs([]string{"Chrome", "2", "5"}, true)
	require.NoError(t, err)
	assert.Equal(t, browser.TabKey{Browser: browser.Chrome, WindowIndex: 2, TabIndex: 5}, key)

	key, err = parseTabArgs([]string{"safari", "1"}, false)
	require.NoError(t, err)
	assert.Equal(t, browser.TabKey{Browser: browser.Safari, WindowIndex: 1}, key)

	_, err = parseTabArgs([]string{"safari", "1"}, true)
	assert.ErrorContains(t, err, "<tab>")
	_, err = parseTabArgs([]string{"netscape", "1", "1"}, true)
	assert.ErrorContains(t, err, "unknown browser")
	_, err = parseTabArgs([]string{"safari", "0", "1"}, true)
	assert.ErrorContains(t, err, "window index")
	_, err = parseTabArgs([]string{"safari", "1", "x"}, true)
	assert.ErrorContains(t, err, "tab index")
}

func TestLookupCommand(t *testing.T) {
	for _, name := range []string{"list", "close", "dupes", "watch", "script"} {
		_, ok := lookupCommand(name)
		assert.True(t, ok, name)
	}
	_, ok := lookupCommand("explode")
	assert.False(t, ok)
}

func testSnapshot() browser.Snapshot {
	return browser.NewSnapshot(map[browser.VariantID][]browser.Window{
		browser.Safari: {{
			Browser: browser.Safari, Index: 1, Title: "Reading",
			Tabs: []browser.Tab{
				{Browser: browser.Safari, WindowIndex: 1, Index: 1, Title: "Go", URL: "https://go.dev/", Active: true},
				{Browser: browser.Safari, WindowIndex: 1, Index: 2, Title: "Video", URL: "https://www.youtube.com/watch?v=1"},
			},
		}},
		browser.Chrome: {{
			Browser: browser.Chrome, Index: 1, Title: "Work",
			Tabs: []browser.Tab{
				{Browser: browser.Chrome, WindowIndex: 1, Index: 1, Title: "Go", URL: "https://go.dev/", Active: true},
			},
		}},
	})
}

func TestFilterWindows(t *testing.T) {
	s := testSnapshot()
	assert.Len(t, filterWindows(s, nil), 2)

	only := filterWindows(s, []browser.VariantID{browser.Chrome})
	require.Len(t, only, 1)
	assert.Equal(t, browser.Chrome, only[0].Browser)

	assert.Empty(t, filterWindows(s, []browser.VariantID{browser.Arc}))
}

func TestRenderFormats(t *testing.T) {
	windows := filterWindows(testSnapshot(), nil)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		a := &app{config: &Config{Output: formatJSON}, out: &buf}
		require.NoError(t, a.render(windows, func(io.Writer) { t.Fatal("text renderer called") }))

		var got []browser.Window
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, windows, got)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		a := &app{config: &Config{Output: formatYAML}, out: &buf}
		require.NoError(t, a.render(windows, func(io.Writer) { t.Fatal("text renderer called") }))
		assert.Contains(t, buf.String(), "url: https://go.dev/")

		var got []browser.Window
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, windows, got)
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		a := &app{config: &Config{Output: formatText}, out: &buf}
		require.NoError(t, a.render(windows, func(w io.Writer) { renderWindows(w, windows) }))
		out := buf.String()
		assert.Contains(t, out, "Safari window 1")
		assert.Contains(t, out, "Google Chrome window 1")
		assert.Contains(t, out, "https://www.youtube.com/watch?v=1")
	})
}

func TestRenderText(t *testing.T) {
	s := testSnapshot()

	var buf bytes.Buffer
	renderWindows(&buf, nil)
	assert.Contains(t, buf.String(), "No tabs found")

	buf.Reset()
	renderDuplicates(&buf, engine.Duplicates(s))
	assert.Contains(t, buf.String(), "https://go.dev/")
	assert.Contains(t, buf.String(), "keep")
	assert.Contains(t, buf.String(), "close")

	buf.Reset()
	st := engine.Statistics(s)
	renderStats(&buf, st, st.TopDomains(5))
	assert.Contains(t, buf.String(), "3 tabs in 2 windows")
	assert.Contains(t, buf.String(), "go.dev")

	buf.Reset()
	renderHeavy(&buf, engine.RankHeavy(s, engine.MustHeavyMatcher([]string{"youtube.com"}), 0))
	assert.Contains(t, buf.String(), "youtube.com")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "é…", truncate("éééé", 2))
}

func TestFormatEvent(t *testing.T) {
	assert.Contains(t, formatEvent(types.NewTabClosedEvent("chrome", 1, 3)), "Google Chrome window 1 tab 3")
	assert.Contains(t, formatEvent(types.NewPermissionGrantedEvent("safari")), "Safari")
	assert.Contains(t, formatEvent(types.NewRefreshFailedEvent("arc", errors.New("boom"))), "boom")
	assert.Contains(t, formatEvent(types.NewRefreshCompleteEvent("safari", 2, 1500*time.Microsecond)), "2 windows")
	assert.Contains(t, formatEvent(types.NewTargetsDetectedEvent([]string{"safari", "chrome"})), "Detected 2 installed browsers")
}

func TestWatcherSkipsRefreshNoise(t *testing.T) {
	var buf bytes.Buffer
	w := &watcher{out: &buf, seen: make(map[string]bool)}
	w.event(types.NewRefreshStartEvent(""))
	w.event(types.NewRefreshCompleteEvent("safari", 1, time.Millisecond))
	assert.Empty(t, buf.String())

	w.event(types.NewRefreshFailedEvent("safari", errors.New("timeout")))
	assert.Contains(t, buf.String(), "timeout")

	buf.Reset()
	w.verbose = true
	w.event(types.NewRefreshStartEvent(""))
	assert.Contains(t, buf.String(), "Refreshing all browsers")
}

func TestRunScriptPlain(t *testing.T) {
	var buf bytes.Buffer
	a := &app{config: &Config{Browser: "chrome"}, out: &buf}
	require.NoError(t, runScript(context.Background(), a, []string{"-plain", "-app", "Google Chrome Beta"}))
	assert.Contains(t, buf.String(), `tell application "Google Chrome Beta"`)

	buf.Reset()
	require.NoError(t, runScript(context.Background(), a, []string{"-plain", "-kind", "close", "-window", "2", "-tab", "4"}))
	assert.Contains(t, buf.String(), "close tab 4 of window 2")

	assert.ErrorContains(t, runScript(context.Background(), a, []string{"-kind", "explode"}), "unknown script kind")

	a.config.Browser = "firefox"
	assert.ErrorIs(t, runScript(context.Background(), a, nil), engine.ErrUnsupportedTarget)

	a.config.Browser = ""
	assert.Error(t, runScript(context.Background(), a, nil))
}

func TestReportErrorPermissionHint(t *testing.T) {
	var buf bytes.Buffer
	reportError(&buf, bridge.Classify("safari", bridge.CodeNotAuthorized, "Not authorized to send Apple events to Safari."))
	assert.Contains(t, buf.String(), "Privacy & Security")

	buf.Reset()
	reportError(&buf, errors.New("plain failure"))
	assert.Contains(t, buf.String(), "plain failure")
	assert.NotContains(t, buf.String(), "Privacy & Security")
}
