package model

import "time"

// ChangeEvent is a single status transition taken from an issue's
// change history.
type ChangeEvent struct {
	// At is when the transition happened.
	At time.Time `json:"at"`

	// FromStatus is the status the issue left. Empty for a creation marker.
	FromStatus string `json:"from_status"`

	// ToStatus is the status the issue entered.
	ToStatus string `json:"to_status"`
}
