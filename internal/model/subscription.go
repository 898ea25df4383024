package model

import "time"

// Frequency is how often a subscriber wants notifications batched.
type Frequency string

const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
)

// Valid reports whether f is a known delivery frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyImmediate, FrequencyDaily, FrequencyWeekly:
		return true
	}
	return false
}

// Subscription ties a subscriber (email address or account id) to one line.
// The category flags are opt-out: a nil flag counts as enabled.
type Subscription struct {
	ID            string     `json:"id"`
	SubscriberKey string     `json:"subscriber_key"`
	LineID        string     `json:"line_id"`
	Enabled       bool       `json:"enabled"`
	Delay         *bool      `json:"delay_notification,omitempty"`
	Suspension    *bool      `json:"suspension_notification,omitempty"`
	Recovery      *bool      `json:"recovery_notification,omitempty"`
	Frequency     Frequency  `json:"frequency"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// WantsCategory reports whether the subscription accepts notifications of the
// given category. Flags default to enabled when unset; general changes are
// always accepted.
func (s Subscription) WantsCategory(c Category) bool {
	flag := func(p *bool) bool { return p == nil || *p }
	switch c {
	case CategoryDelay:
		return flag(s.Delay)
	case CategorySuspension:
		return flag(s.Suspension)
	case CategoryRecovery:
		return flag(s.Recovery)
	default:
		return true
	}
}
