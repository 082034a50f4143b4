package stock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"storecheckout/internal/clock"
	"storecheckout/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresLedger struct {
	pool   *pgxpool.Pool
	clock  clock.Clock
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, clk clock.Clock, logger *log.Logger) Ledger {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &postgresLedger{pool: pool, clock: clk, logger: logger}
}

func (l *postgresLedger) ReservedQuantity(ctx context.Context, itemID, excludeHolderID string) (int, error) {
	const q = `
SELECT COALESCE(SUM(quantity), 0)
FROM reserved_stock
WHERE item_id = $1 AND holder_id <> $2 AND expires_at > $3
`
	var total int
	if err := l.pool.QueryRow(ctx, q, itemID, excludeHolderID, l.clock.Now()).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum reserved stock: %w", err)
	}
	return total, nil
}

// UpsertHold serializes writers of one item with a transaction-scoped
// advisory lock, then checks and writes in a single conditional statement.
// On-hand stock is read from the catalog row inside the same transaction, so
// a stock decrement committed after the caller's read is still honored.
// req.Available only applies to items without a catalog row.
func (l *postgresLedger) UpsertHold(ctx context.Context, req HoldRequest) error {
	if err := validate(req); err != nil {
		return err
	}
	now := l.clock.Now()

	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin hold tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, req.ItemID); err != nil {
		return fmt.Errorf("lock item %s: %w", req.ItemID, err)
	}

	available, err := onHand(ctx, tx, req)
	if err != nil {
		return err
	}

	const stmt = `
INSERT INTO reserved_stock (holder_id, item_id, quantity, expires_at)
SELECT $1::text, $2::text, $3::int, $4::timestamptz
WHERE $5::int - (
    SELECT COALESCE(SUM(quantity), 0)
    FROM reserved_stock
    WHERE item_id = $2 AND holder_id <> $1 AND expires_at > $6::timestamptz
) >= $3::int
ON CONFLICT (holder_id, item_id) DO UPDATE SET
    quantity = EXCLUDED.quantity,
    expires_at = EXCLUDED.expires_at
`
	tag, err := tx.Exec(ctx, stmt, req.HolderID, req.ItemID, req.Quantity, now.Add(req.TTL), available, now)
	if err != nil {
		return fmt.Errorf("upsert hold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		l.logger.Printf("stock ledger: hold rejected holder=%s item=%s qty=%d available=%d", req.HolderID, req.ItemID, req.Quantity, available)
		return domain.ErrInsufficientStock
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit hold: %w", err)
	}
	return nil
}

func onHand(ctx context.Context, tx pgx.Tx, req HoldRequest) (int, error) {
	var qty int
	err := tx.QueryRow(ctx, `SELECT stock_quantity FROM products WHERE id::text = $1 FOR UPDATE`, req.ItemID).Scan(&qty)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return req.Available, nil
	case err != nil:
		return 0, fmt.Errorf("read stock of %s: %w", req.ItemID, err)
	}
	if qty < 0 {
		qty = 0
	}
	return qty, nil
}

func (l *postgresLedger) DeleteHolds(ctx context.Context, holderID string) error {
	tag, err := l.pool.Exec(ctx, `DELETE FROM reserved_stock WHERE holder_id = $1`, holderID)
	if err != nil {
		return fmt.Errorf("delete holds: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		l.logger.Printf("stock ledger: released holder=%s rows=%d", holderID, n)
	}
	return nil
}

func (l *postgresLedger) SweepExpired(ctx context.Context) (int, error) {
	tag, err := l.pool.Exec(ctx, `DELETE FROM reserved_stock WHERE expires_at <= $1`, l.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("sweep expired holds: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
