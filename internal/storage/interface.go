package storage

import (
	"context"
	"time"

	"github.com/rosenban/rosenban/internal/model"
)

// StatusStore holds the latest known status per line.
type StatusStore interface {
	// GetAll returns the full snapshot.
	GetAll(ctx context.Context) ([]model.LineStatus, error)
	// UpsertBatch writes every incoming line, refreshing updated_at even for
	// unchanged rows. Upserts are independent per line; on failure it returns
	// how many lines were persisted before the error.
	UpsertBatch(ctx context.Context, lines []model.LineStatus) (int, error)
	Ping(ctx context.Context) error
}

// SubscriptionStore persists per-subscriber line subscriptions.
type SubscriptionStore interface {
	// Upsert writes a subscription keyed on (subscriber_key, line_id).
	Upsert(ctx context.Context, sub *model.Subscription) error
	// Disable logically deletes the subscription for a subscriber and line.
	Disable(ctx context.Context, subscriberKey, lineID string) error
	// FindEnabledForLine returns all enabled subscriptions for a line.
	FindEnabledForLine(ctx context.Context, lineID string) ([]model.Subscription, error)
	// FindEnabledByFrequency returns all enabled subscriptions with the given
	// delivery frequency.
	FindEnabledByFrequency(ctx context.Context, freq model.Frequency) ([]model.Subscription, error)
}

// DigestStore is the append-only pending digest log.
type DigestStore interface {
	Append(ctx context.Context, entry *model.PendingDigestEntry) error
	// ReadWindow returns unconsumed entries for one subscriber, restricted to
	// the given lines and to occurred_at >= since.
	ReadWindow(ctx context.Context, subscriberKey string, lineIDs []string, since time.Time) ([]model.PendingDigestEntry, error)
	// MarkConsumed retires entries that were included in a sent digest.
	MarkConsumed(ctx context.Context, ids []int64, at time.Time) error
}

// PushStore persists browser push registrations.
type PushStore interface {
	// Register upserts an endpoint keyed on its URL.
	Register(ctx context.Context, ep *model.PushEndpoint) error
	// FindActiveForLine returns active endpoints whose subscriber has an
	// enabled subscription for the line.
	FindActiveForLine(ctx context.Context, lineID string) ([]model.PushEndpoint, error)
	// Deactivate marks an endpoint inactive after a permanent transport
	// failure.
	Deactivate(ctx context.Context, endpoint string) error
}

// HistoryStore records successful sends for auditing.
type HistoryStore interface {
	Record(ctx context.Context, h *model.NotificationHistory) error
}
