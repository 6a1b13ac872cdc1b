// Package main provides the tabsweep command line tool. It lists the tabs of
// every running macOS browser it can script and closes, deduplicates or
// consolidates them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/tabsweep/pkg/bridge"
	"github.com/entrhq/tabsweep/pkg/browser"
	appconfig "github.com/entrhq/tabsweep/pkg/config"
	"github.com/entrhq/tabsweep/pkg/engine"
	"github.com/entrhq/tabsweep/pkg/logging"
	"github.com/entrhq/tabsweep/pkg/permission"
	"github.com/entrhq/tabsweep/pkg/types"
)

const version = "0.1.0"

// Config holds the global command line options.
type Config struct {
	ConfigPath  string
	Browser     string
	Output      string
	LogLevel    string
	ShowVersion bool
}

func main() {
	config, args := parseFlags(os.Args[1:])

	if config.ShowVersion {
		fmt.Printf("tabsweep v%s\n", version)
		return
	}

	if err := config.validate(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Configuration error: "+err.Error()))
		os.Exit(2)
	}
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	err := run(ctx, config, args, os.Stdout)
	cancel()
	if err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// parseFlags parses the global options and returns the remaining command
// and its arguments.
func parseFlags(argv []string) (*Config, []string) {
	config := &Config{}

	flag.StringVar(&config.ConfigPath, "config", "", "Path to settings file (default ~/.tabsweep/config.json)")
	flag.StringVar(&config.Browser, "browser", "", "Restrict commands to one browser (safari, chrome, chromium, edge, brave, vivaldi, opera, arc)")
	flag.StringVar(&config.Output, "o", "text", "Output format: text, json or yaml")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level for ~/.tabsweep/logs: debug, info, warn or error")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tabsweep - inspect and tidy browser tabs on macOS\n\n")
		fmt.Fprintf(os.Stderr, "Usage: tabsweep [options] <command> [command options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n")
		for _, c := range commands {
			fmt.Fprintf(os.Stderr, "  %-14s %s\n", c.name, c.summary)
		}
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  tabsweep list\n")
		fmt.Fprintf(os.Stderr, "  tabsweep -browser chrome close-domain youtube.com\n")
		fmt.Fprintf(os.Stderr, "  tabsweep consolidate -max 2 -close\n")
		fmt.Fprintf(os.Stderr, "  tabsweep -o yaml stats\n")
		fmt.Fprintf(os.Stderr, "  tabsweep config set engine.max_per_domain=2\n")
	}

	_ = flag.CommandLine.Parse(argv)
	return config, flag.Args()
}

// validate checks that the configuration is valid
func (c *Config) validate() error {
	switch c.Output {
	case formatText, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown output format %q (use text, json or yaml)", c.Output)
	}
	if c.Browser != "" {
		if _, ok := browser.Lookup(browser.VariantID(c.Browser)); !ok {
			return fmt.Errorf("unknown browser %q", c.Browser)
		}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// browserFilter returns the -browser option as a filter list.
func (c *Config) browserFilter() []browser.VariantID {
	if c.Browser == "" {
		return nil
	}
	return []browser.VariantID{browser.VariantID(c.Browser)}
}

// app bundles what commands need. Fields are set up lazily so commands like
// "script" never touch the scripting bridge.
type app struct {
	config   *Config
	out      io.Writer
	errOut   io.Writer
	manager  *appconfig.Manager
	settings *appconfig.EngineSection
	perms    *appconfig.PermissionsSection
	exec     *bridge.OSAScript
	tracker  *permission.Tracker
	engine   *engine.Engine
	events   chan *types.Event
}

func run(ctx context.Context, config *Config, args []string, out io.Writer) error {
	level, _ := logging.ParseLevel(config.LogLevel)
	logging.SetLevel(level)

	if err := appconfig.Initialize(config.ConfigPath); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	cmd, ok := lookupCommand(args[0])
	if !ok {
		return fmt.Errorf("unknown command %q (run tabsweep -h for the list)", args[0])
	}

	a := &app{
		config:   config,
		out:      out,
		errOut:   os.Stderr,
		manager:  appconfig.Global(),
		settings: appconfig.GetEngine(),
		perms:    appconfig.GetPermissions(),
	}
	defer a.close()
	return cmd.run(ctx, a, args[1:])
}

// start builds the bridge, tracker and engine, then detects browsers.
func (a *app) start(ctx context.Context) error {
	if a.engine != nil {
		return nil
	}

	store, err := permission.NewFileStore(a.perms.ResolvedStorePath())
	if err != nil {
		return err
	}
	ttl, window := a.perms.Timing()
	a.tracker, err = permission.NewTracker(store,
		permission.WithNotificationTTL(ttl),
		permission.WithRecentGrantWindow(window),
		permission.WithNamer(displayName),
	)
	if err != nil {
		return err
	}

	heavy, _, _, workers := a.settings.Settings()
	matcher, err := engine.NewHeavyMatcher(heavy)
	if err != nil {
		return err
	}

	a.exec = bridge.NewOSAScript(bridge.WithWorkers(workers))
	a.attach(a.exec, bridge.NewScriptLocator(a.exec), matcher)
	return a.detect(ctx)
}

// attach creates the engine over exec and locator.
func (a *app) attach(exec bridge.Executor, locator bridge.Locator, matcher *engine.HeavyMatcher) {
	a.events = make(chan *types.Event, 64)
	a.engine = engine.New(exec, locator, a.tracker,
		engine.WithEventChannel(a.events),
		engine.WithHeavyMatcher(matcher),
	)
}

// detect refreshes the installed and running sets. A failed lookup for one
// bundle is printed as a warning; detection of the others still counts.
func (a *app) detect(ctx context.Context) error {
	if _, err := a.engine.DetectTargets(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		reportError(a.errOut, fmt.Errorf("detecting browsers: %w", err))
	}
	return nil
}

// refresh starts the engine if needed and fetches every running browser.
// Per-browser failures are printed as warnings; the snapshot still holds
// whatever could be fetched.
func (a *app) refresh(ctx context.Context) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	if err := a.engine.RefreshAll(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.warnRefresh()
	}
	return nil
}

func (a *app) warnRefresh() {
	for _, id := range a.engine.Running() {
		if err := a.engine.LastError(id); err != nil {
			reportError(a.errOut, fmt.Errorf("%s: %w", displayName(string(id)), err))
		}
	}
}

func (a *app) close() {
	if a.engine != nil {
		a.engine.Close()
	}
	if a.tracker != nil {
		a.tracker.Close()
	}
	if a.exec != nil {
		a.exec.Close()
	}
}

func displayName(target string) string {
	if v, ok := browser.Lookup(browser.VariantID(target)); ok {
		return v.DisplayName
	}
	return target
}

// reportError prints err, pointing permission failures at the consent flow.
func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("Error: "+err.Error()))
	if errors.Is(err, bridge.ErrPermissionDenied) {
		fmt.Fprintln(w, mutedStyle.Render(
			"Allow tabsweep to control the browser in System Settings > Privacy & Security > Automation,\n"+
				"then run: tabsweep permissions -probe"))
	}
}
