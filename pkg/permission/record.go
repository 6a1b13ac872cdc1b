package permission

import "time"

// State is the last known automation consent for a target.
type State string

const (
	StateUnknown State = "unknown"
	StateDenied  State = "denied"
	StateGranted State = "granted"
)

// Record is the persisted permission history of one target.
type Record struct {
	Target        string    `json:"target" yaml:"target"`
	Granted       bool      `json:"granted" yaml:"granted"`
	LastCheckedAt time.Time `json:"last_checked_at" yaml:"last_checked_at"`
	// FirstGrantedAt is set on the first grant and never changed afterwards.
	FirstGrantedAt *time.Time `json:"first_granted_at,omitempty" yaml:"first_granted_at,omitempty"`
}

// State derives the observable state of the record.
func (r Record) State() State {
	if r.Granted {
		return StateGranted
	}
	return StateDenied
}

// Notification is a short-lived message announcing a newly granted target.
type Notification struct {
	ID        string    `json:"id" yaml:"id"`
	Target    string    `json:"target" yaml:"target"`
	Message   string    `json:"message" yaml:"message"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
