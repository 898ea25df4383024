package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rosenban/rosenban/internal/model"
)

type postgresHistoryStore struct {
	db *pgxpool.Pool
}

// NewHistoryStore returns a Postgres-backed HistoryStore.
func NewHistoryStore(pool *pgxpool.Pool) HistoryStore {
	return &postgresHistoryStore{db: pool}
}

func (s *postgresHistoryStore) Record(ctx context.Context, h *model.NotificationHistory) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}

	const query = `
		INSERT INTO notification_history
			(id, recipient, channel, line_id, category, subject, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := s.db.Exec(ctx, query, h.ID, h.Recipient, h.Channel,
		h.LineID, h.Category, h.Subject, h.SentAt); err != nil {
		return fmt.Errorf("record notification history failed: %w", err)
	}
	return nil
}
