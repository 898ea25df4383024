package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rosenban/rosenban/internal/model"
)

type postgresDigestStore struct {
	db *pgxpool.Pool
}

// NewDigestStore returns a Postgres-backed DigestStore.
func NewDigestStore(pool *pgxpool.Pool) DigestStore {
	return &postgresDigestStore{db: pool}
}

func (s *postgresDigestStore) Append(ctx context.Context, entry *model.PendingDigestEntry) error {
	const query = `
		INSERT INTO pending_digest_entries
			(subscriber_key, line_id, line_name, category, status, detail,
			 frequency, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	row := s.db.QueryRow(ctx, query,
		entry.SubscriberKey, entry.LineID, entry.LineName, entry.Category,
		entry.Status, entry.Detail, entry.Frequency, entry.OccurredAt)
	if err := row.Scan(&entry.ID); err != nil {
		return fmt.Errorf("append digest entry failed: %w", err)
	}
	return nil
}

func (s *postgresDigestStore) ReadWindow(ctx context.Context, subscriberKey string, lineIDs []string, since time.Time) ([]model.PendingDigestEntry, error) {
	const query = `
		SELECT id, subscriber_key, line_id, line_name, category, status,
		       detail, frequency, occurred_at, consumed_at
		FROM pending_digest_entries
		WHERE subscriber_key = $1
		  AND line_id = ANY($2)
		  AND occurred_at >= $3
		  AND consumed_at IS NULL
		ORDER BY occurred_at
	`

	rows, err := s.db.Query(ctx, query, subscriberKey, lineIDs, since)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var entries []model.PendingDigestEntry
	for rows.Next() {
		var e model.PendingDigestEntry
		if err := rows.Scan(&e.ID, &e.SubscriberKey, &e.LineID, &e.LineName,
			&e.Category, &e.Status, &e.Detail, &e.Frequency,
			&e.OccurredAt, &e.ConsumedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return entries, nil
}

func (s *postgresDigestStore) MarkConsumed(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `
		UPDATE pending_digest_entries SET consumed_at = $2
		WHERE id = ANY($1) AND consumed_at IS NULL
	`

	if _, err := s.db.Exec(ctx, query, ids, at); err != nil {
		return fmt.Errorf("mark consumed failed: %w", err)
	}
	return nil
}
