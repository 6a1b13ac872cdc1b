package config

// Section is one named group of settings. Data and SetData use plain JSON
// values so a Store does not need to know section types.
type Section interface {
	ID() string
	Title() string
	Description() string

	// Data returns the current values.
	Data() map[string]any

	// SetData applies values. Unknown keys are ignored.
	SetData(data map[string]any) error

	// Validate checks the current values.
	Validate() error

	// Reset restores defaults.
	Reset()
}
