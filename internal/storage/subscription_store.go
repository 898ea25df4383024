package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appErr "github.com/rosenban/rosenban/internal/errors"
	"github.com/rosenban/rosenban/internal/model"
)

type postgresSubscriptionStore struct {
	db *pgxpool.Pool
}

// NewSubscriptionStore returns a Postgres-backed SubscriptionStore.
func NewSubscriptionStore(pool *pgxpool.Pool) SubscriptionStore {
	return &postgresSubscriptionStore{db: pool}
}

func (s *postgresSubscriptionStore) Upsert(ctx context.Context, sub *model.Subscription) error {
	// The unique index on (subscriber_key, line_id) is what keeps one active
	// row per subscriber and line; duplicates would mean duplicate sends.
	const query = `
		INSERT INTO subscriptions
			(id, subscriber_key, line_id, enabled, delay_notification,
			 suspension_notification, recovery_notification, frequency,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (subscriber_key, line_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			delay_notification = EXCLUDED.delay_notification,
			suspension_notification = EXCLUDED.suspension_notification,
			recovery_notification = EXCLUDED.recovery_notification,
			frequency = EXCLUDED.frequency,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	now := time.Now()
	row := s.db.QueryRow(ctx, query,
		sub.ID, sub.SubscriberKey, sub.LineID, sub.Enabled,
		sub.Delay, sub.Suspension, sub.Recovery, sub.Frequency, now)
	if err := row.Scan(&sub.ID, &sub.CreatedAt); err != nil {
		return fmt.Errorf("upsert subscription failed: %w", err)
	}
	sub.UpdatedAt = now
	return nil
}

func (s *postgresSubscriptionStore) Disable(ctx context.Context, subscriberKey, lineID string) error {
	const query = `
		UPDATE subscriptions SET enabled = false, updated_at = $3
		WHERE subscriber_key = $1 AND line_id = $2
	`

	tag, err := s.db.Exec(ctx, query, subscriberKey, lineID, time.Now())
	if err != nil {
		return fmt.Errorf("disable subscription failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return appErr.NewNotFound("no subscription for %s on line %s", subscriberKey, lineID)
	}
	return nil
}

func (s *postgresSubscriptionStore) FindEnabledForLine(ctx context.Context, lineID string) ([]model.Subscription, error) {
	const query = `
		SELECT id, subscriber_key, line_id, enabled, delay_notification,
		       suspension_notification, recovery_notification, frequency,
		       created_at, updated_at
		FROM subscriptions
		WHERE line_id = $1 AND enabled = true
	`
	return s.querySubscriptions(ctx, query, lineID)
}

func (s *postgresSubscriptionStore) FindEnabledByFrequency(ctx context.Context, freq model.Frequency) ([]model.Subscription, error) {
	const query = `
		SELECT id, subscriber_key, line_id, enabled, delay_notification,
		       suspension_notification, recovery_notification, frequency,
		       created_at, updated_at
		FROM subscriptions
		WHERE frequency = $1 AND enabled = true
	`
	return s.querySubscriptions(ctx, query, string(freq))
}

func (s *postgresSubscriptionStore) querySubscriptions(ctx context.Context, query string, args ...any) ([]model.Subscription, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	subs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Subscription, error) {
		var sub model.Subscription
		err := row.Scan(&sub.ID, &sub.SubscriberKey, &sub.LineID, &sub.Enabled,
			&sub.Delay, &sub.Suspension, &sub.Recovery, &sub.Frequency,
			&sub.CreatedAt, &sub.UpdatedAt)
		return sub, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return subs, nil
}
