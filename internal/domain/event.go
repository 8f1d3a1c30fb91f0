package domain

import "time"

// DefaultSource tags every ledger entry written by a reaction event.
const DefaultSource = "Reaction Event"

// EventOptions configures a single reaction event.
type EventOptions struct {
	// Amount is awarded to every eligible participant. Must be positive.
	Amount int64 `json:"amount"`
	// PotSize caps the total payout. Zero or negative means unlimited.
	PotSize int64 `json:"pot_size"`
	// Duration ends the event after it elapses. Zero means no timeout.
	Duration time.Duration `json:"duration"`
}

func (o EventOptions) Validate() error {
	if o.Amount <= 0 {
		return ErrInvalidAmount
	}
	if o.PotLimited() && o.PotSize < o.Amount {
		return ErrPotTooSmall
	}
	if o.Duration < 0 {
		return ErrInvalidDuration
	}
	return nil
}

// PotLimited reports whether the options describe a finite pot.
func (o EventOptions) PotLimited() bool {
	return o.PotSize > 0
}

// EventState is the lifecycle state of an event. There is no way back to Running.
type EventState int32

const (
	EventCreated EventState = iota
	EventRunning
	EventStopped
)

func (s EventState) String() string {
	switch s {
	case EventCreated:
		return "created"
	case EventRunning:
		return "running"
	case EventStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// EventInfo is a read-only view of an event for listings.
type EventInfo struct {
	ScopeID      string        `json:"scope_id"`
	AnchorID     string        `json:"anchor_id"`
	State        string        `json:"state"`
	Amount       int64         `json:"amount"`
	PotSize      int64         `json:"pot_size"`
	PotRemaining int64         `json:"pot_remaining"`
	Unlimited    bool          `json:"unlimited"`
	Awarded      int           `json:"awarded"`
	Participants int           `json:"participants"`
	Pending      int           `json:"pending"`
	Duration     time.Duration `json:"duration"`
}
