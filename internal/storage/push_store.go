package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rosenban/rosenban/internal/model"
)

type postgresPushStore struct {
	db *pgxpool.Pool
}

// NewPushStore returns a Postgres-backed PushStore.
func NewPushStore(pool *pgxpool.Pool) PushStore {
	return &postgresPushStore{db: pool}
}

func (s *postgresPushStore) Register(ctx context.Context, ep *model.PushEndpoint) error {
	if ep.ID == "" {
		ep.ID = uuid.New().String()
	}

	// Re-registering a known endpoint updates it in place, so a browser that
	// refreshes its subscription never duplicates a row.
	const query = `
		INSERT INTO push_endpoints
			(id, subscriber_key, endpoint, p256dh, auth, is_active,
			 device_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, true, $6, $7, $7)
		ON CONFLICT (endpoint) DO UPDATE SET
			subscriber_key = EXCLUDED.subscriber_key,
			p256dh = EXCLUDED.p256dh,
			auth = EXCLUDED.auth,
			is_active = true,
			device_type = EXCLUDED.device_type,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	now := time.Now()
	row := s.db.QueryRow(ctx, query, ep.ID, ep.SubscriberKey, ep.Endpoint,
		ep.P256dh, ep.Auth, ep.DeviceType, now)
	if err := row.Scan(&ep.ID, &ep.CreatedAt); err != nil {
		return fmt.Errorf("register push endpoint failed: %w", err)
	}
	ep.IsActive = true
	ep.UpdatedAt = now
	return nil
}

func (s *postgresPushStore) FindActiveForLine(ctx context.Context, lineID string) ([]model.PushEndpoint, error) {
	// Push delivery is category-blind: any active endpoint whose subscriber
	// holds an enabled subscription for the line receives the push.
	const query = `
		SELECT p.id, p.subscriber_key, p.endpoint, p.p256dh, p.auth,
		       p.is_active, p.device_type, p.created_at, p.updated_at
		FROM push_endpoints p
		JOIN subscriptions s ON s.subscriber_key = p.subscriber_key
		WHERE s.line_id = $1 AND s.enabled = true AND p.is_active = true
	`

	rows, err := s.db.Query(ctx, query, lineID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var endpoints []model.PushEndpoint
	for rows.Next() {
		var ep model.PushEndpoint
		if err := rows.Scan(&ep.ID, &ep.SubscriberKey, &ep.Endpoint, &ep.P256dh,
			&ep.Auth, &ep.IsActive, &ep.DeviceType, &ep.CreatedAt, &ep.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		endpoints = append(endpoints, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return endpoints, nil
}

func (s *postgresPushStore) Deactivate(ctx context.Context, endpoint string) error {
	const query = `
		UPDATE push_endpoints SET is_active = false, updated_at = $2
		WHERE endpoint = $1
	`

	if _, err := s.db.Exec(ctx, query, endpoint, time.Now()); err != nil {
		return fmt.Errorf("deactivate push endpoint failed: %w", err)
	}
	return nil
}
