package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rosenban/rosenban/internal/model"
)

type postgresStatusStore struct {
	db *pgxpool.Pool
}

// NewStatusStore returns a Postgres-backed StatusStore.
func NewStatusStore(pool *pgxpool.Pool) StatusStore {
	return &postgresStatusStore{db: pool}
}

func (s *postgresStatusStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *postgresStatusStore) GetAll(ctx context.Context) ([]model.LineStatus, error) {
	const query = `
		SELECT line_id, name, status, section, detail, color, updated_at
		FROM line_statuses
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var lines []model.LineStatus
	for rows.Next() {
		var l model.LineStatus
		if err := rows.Scan(&l.LineID, &l.Name, &l.Status, &l.Section, &l.Detail, &l.Color, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return lines, nil
}

func (s *postgresStatusStore) UpsertBatch(ctx context.Context, lines []model.LineStatus) (int, error) {
	const query = `
		INSERT INTO line_statuses (line_id, name, status, section, detail, color, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (line_id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			section = EXCLUDED.section,
			detail = EXCLUDED.detail,
			color = EXCLUDED.color,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	for i, l := range lines {
		if _, err := s.db.Exec(ctx, query, l.LineID, l.Name, l.Status, l.Section, l.Detail, l.Color, now); err != nil {
			return i, fmt.Errorf("upsert of line %s failed: %w", l.LineID, err)
		}
	}
	return len(lines), nil
}
