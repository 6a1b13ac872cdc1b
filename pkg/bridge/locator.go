package bridge

import (
	"context"
	"strings"

	"github.com/entrhq/tabsweep/pkg/script"
)

// Locator answers whether applications are installed and running.
type Locator interface {
	Installed(ctx context.Context, bundleID string) (bool, error)
	// RunningName returns the display name the running application
	// registered under, or ok=false when it is not running.
	RunningName(ctx context.Context, bundleID string) (name string, ok bool, err error)
}

// ScriptLocator implements Locator with small scripts that neither launch the
// application nor need automation consent for it.
type ScriptLocator struct {
	exec Executor
}

// NewScriptLocator creates a locator running its scripts through exec.
func NewScriptLocator(exec Executor) *ScriptLocator {
	return &ScriptLocator{exec: exec}
}

// Installed reports whether an application with bundleID exists.
func (l *ScriptLocator) Installed(ctx context.Context, bundleID string) (bool, error) {
	out, err := l.exec.Execute(ctx, script.Installed(bundleID), bundleID)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "true", nil
}

// RunningName returns the display name of bundleID if it is running.
func (l *ScriptLocator) RunningName(ctx context.Context, bundleID string) (string, bool, error) {
	out, err := l.exec.Execute(ctx, script.Running(bundleID), bundleID)
	if err != nil {
		return "", false, err
	}
	name := strings.TrimSpace(out)
	return name, name != "", nil
}
