package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStore struct {
	pool   *pgxpool.Pool
	ttl    time.Duration
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, ttl time.Duration, logger *log.Logger) Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresStore{pool: pool, ttl: ttl, logger: logger}
}

func (s *postgresStore) DraftOrderID(ctx context.Context, sessionID string) (string, error) {
	var orderID string
	err := s.pool.QueryRow(ctx, `
SELECT draft_order_id::text
FROM checkout_sessions
WHERE session_id = $1 AND expires_at > NOW()
`, sessionID).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("load checkout session: %w", err)
	}
	return orderID, nil
}

func (s *postgresStore) SetDraftOrderID(ctx context.Context, sessionID, orderID string) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO checkout_sessions (session_id, draft_order_id, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (session_id) DO UPDATE SET
    draft_order_id = EXCLUDED.draft_order_id,
    expires_at = EXCLUDED.expires_at
`, sessionID, orderID, time.Now().UTC().Add(s.ttl))
	if err != nil {
		s.logger.Printf("session store: set session=%s error=%v", sessionID, err)
		return fmt.Errorf("save checkout session: %w", err)
	}
	return nil
}

func (s *postgresStore) Clear(ctx context.Context, sessionID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM checkout_sessions WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("clear checkout session: %w", err)
	}
	return nil
}
