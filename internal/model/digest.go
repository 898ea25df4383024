package model

import "time"

// PendingDigestEntry is one queued line change for a daily or weekly
// subscriber. Entries are append-only; the aggregator marks them consumed
// after they have been included in a digest.
type PendingDigestEntry struct {
	ID            int64      `json:"id"`
	SubscriberKey string     `json:"subscriber_key"`
	LineID        string     `json:"line_id"`
	LineName      string     `json:"line_name"`
	Category      Category   `json:"category"`
	Status        string     `json:"status"`
	Detail        string     `json:"detail,omitempty"`
	Frequency     Frequency  `json:"frequency"`
	OccurredAt    time.Time  `json:"occurred_at"`
	ConsumedAt    *time.Time `json:"consumed_at,omitempty"`
}
