package engine

import "errors"

var (
	// ErrTargetNotInstalled means no application for the variant was found.
	ErrTargetNotInstalled = errors.New("browser is not installed")
	// ErrTargetNotRunning means the variant is installed but not running.
	ErrTargetNotRunning = errors.New("browser is not running")
	// ErrUnsupportedTarget means the variant is unknown or cannot be scripted.
	ErrUnsupportedTarget = errors.New("browser does not support tab scripting")
	// ErrTabNotFound means the tab is not in the current snapshot.
	ErrTabNotFound = errors.New("tab not found")
	// ErrWindowNotFound means the window is not in the current snapshot.
	ErrWindowNotFound = errors.New("window not found")
)
