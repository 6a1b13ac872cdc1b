// Package types holds the events the automation engine emits while it
// refreshes, closes tabs and observes permission changes.
package types

import "time"

// EventType defines the type of event emitted by the engine.
type EventType string

const (
	EventTypeTargetsDetected   EventType = "targets_detected"   // EventTypeTargetsDetected indicates a detection pass finished.
	EventTypeRefreshStart      EventType = "refresh_start"      // EventTypeRefreshStart indicates a refresh of one or all targets started.
	EventTypeRefreshComplete   EventType = "refresh_complete"   // EventTypeRefreshComplete indicates a target was enumerated and its windows replaced.
	EventTypeRefreshFailed     EventType = "refresh_failed"     // EventTypeRefreshFailed indicates enumerating a target failed.
	EventTypeTabClosed         EventType = "tab_closed"         // EventTypeTabClosed indicates a tab was closed.
	EventTypeTabCloseFailed    EventType = "tab_close_failed"   // EventTypeTabCloseFailed indicates closing a tab failed.
	EventTypeTabActivated      EventType = "tab_activated"      // EventTypeTabActivated indicates a tab was brought to the front.
	EventTypePermissionGranted EventType = "permission_granted" // EventTypePermissionGranted indicates a target transitioned to granted.
	EventTypePermissionDenied  EventType = "permission_denied"  // EventTypePermissionDenied indicates the OS refused automation of a target.
)

// Event represents something the engine did or observed.
type Event struct {
	// Metadata holds optional additional information about the event.
	Metadata map[string]any

	// Error contains error information for failure events.
	Error error

	// Type indicates the kind of event.
	Type EventType

	// Target is the browser variant ID the event concerns, if any.
	Target string

	// Targets lists variant IDs for detection events.
	Targets []string

	// WindowIndex and TabIndex address a tab for tab events.
	WindowIndex int
	TabIndex    int

	// Count is the number of windows for refresh events or tabs for detection totals.
	Count int

	// Duration is how long a refresh took.
	Duration time.Duration
}

// NewTargetsDetectedEvent creates a detection event.
func NewTargetsDetectedEvent(targets []string) *Event {
	return &Event{
		Type:     EventTypeTargetsDetected,
		Targets:  targets,
		Count:    len(targets),
		Metadata: make(map[string]any),
	}
}

// NewRefreshStartEvent creates a refresh start event. An empty target means
// every running target.
func NewRefreshStartEvent(target string) *Event {
	return &Event{
		Type:     EventTypeRefreshStart,
		Target:   target,
		Metadata: make(map[string]any),
	}
}

// NewRefreshCompleteEvent creates a refresh complete event.
func NewRefreshCompleteEvent(target string, windows int, duration time.Duration) *Event {
	return &Event{
		Type:     EventTypeRefreshComplete,
		Target:   target,
		Count:    windows,
		Duration: duration,
		Metadata: make(map[string]any),
	}
}

// NewRefreshFailedEvent creates a refresh failure event.
func NewRefreshFailedEvent(target string, err error) *Event {
	return &Event{
		Type:     EventTypeRefreshFailed,
		Target:   target,
		Error:    err,
		Metadata: make(map[string]any),
	}
}

// NewTabClosedEvent creates a tab closed event.
func NewTabClosedEvent(target string, window, tab int) *Event {
	return &Event{
		Type:        EventTypeTabClosed,
		Target:      target,
		WindowIndex: window,
		TabIndex:    tab,
		Metadata:    make(map[string]any),
	}
}

// NewTabCloseFailedEvent creates a tab close failure event.
func NewTabCloseFailedEvent(target string, window, tab int, err error) *Event {
	return &Event{
		Type:        EventTypeTabCloseFailed,
		Target:      target,
		WindowIndex: window,
		TabIndex:    tab,
		Error:       err,
		Metadata:    make(map[string]any),
	}
}

// NewTabActivatedEvent creates a tab activated event.
func NewTabActivatedEvent(target string, window, tab int) *Event {
	return &Event{
		Type:        EventTypeTabActivated,
		Target:      target,
		WindowIndex: window,
		TabIndex:    tab,
		Metadata:    make(map[string]any),
	}
}

// NewPermissionGrantedEvent creates a permission granted event.
func NewPermissionGrantedEvent(target string) *Event {
	return &Event{
		Type:     EventTypePermissionGranted,
		Target:   target,
		Metadata: make(map[string]any),
	}
}

// NewPermissionDeniedEvent creates a permission denied event.
func NewPermissionDeniedEvent(target string, err error) *Event {
	return &Event{
		Type:     EventTypePermissionDenied,
		Target:   target,
		Error:    err,
		Metadata: make(map[string]any),
	}
}

// WithMetadata adds metadata to the event and returns the event for chaining.
func (e *Event) WithMetadata(key string, value any) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// IsRefreshEvent returns true if this is any refresh-related event.
func (e *Event) IsRefreshEvent() bool {
	return e.Type == EventTypeRefreshStart ||
		e.Type == EventTypeRefreshComplete ||
		e.Type == EventTypeRefreshFailed
}

// IsTabEvent returns true if this event concerns a single tab.
func (e *Event) IsTabEvent() bool {
	return e.Type == EventTypeTabClosed ||
		e.Type == EventTypeTabCloseFailed ||
		e.Type == EventTypeTabActivated
}

// IsPermissionEvent returns true if this is any permission-related event.
func (e *Event) IsPermissionEvent() bool {
	return e.Type == EventTypePermissionGranted ||
		e.Type == EventTypePermissionDenied
}

// IsErrorEvent returns true if the event reports a failure.
func (e *Event) IsErrorEvent() bool {
	return e.Error != nil ||
		e.Type == EventTypeRefreshFailed ||
		e.Type == EventTypeTabCloseFailed ||
		e.Type == EventTypePermissionDenied
}
