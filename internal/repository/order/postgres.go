package order

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"storecheckout/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const orderColumns = `id::text, session_id, status, cart_hash, currency, total_cents, lines, payment_method_id, customer_id, customer_note, billing_address, shipping_address, created_at, updated_at, paid_at`

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	if o.Lines == nil {
		o.Lines = []domain.OrderLine{}
	}

	const q = `
INSERT INTO orders (id, session_id, status, cart_hash, currency, total_cents, lines, payment_method_id, customer_id, customer_note, billing_address, shipping_address, created_at, updated_at, paid_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
`
	if _, err := r.pool.Exec(ctx, q,
		o.ID,
		o.SessionID,
		string(o.Status),
		o.CartHash,
		o.Currency,
		o.TotalCents,
		o.Lines,
		o.PaymentMethodID,
		o.CustomerID,
		o.CustomerNote,
		o.BillingAddress,
		o.ShippingAddress,
		o.CreatedAt,
		o.UpdatedAt,
		o.PaidAt,
	); err != nil {
		r.logger.Printf("order repo: create id=%s error=%v", o.ID, err)
		return nil, err
	}
	r.logger.Printf("order repo: created id=%s session=%s status=%s", o.ID, o.SessionID, o.Status)
	return &o, nil
}

func (r *postgresRepo) Get(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Printf("order repo: get id=%s error=%v", id, err)
		}
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) Update(ctx context.Context, o domain.Order) (*domain.Order, error) {
	o.UpdatedAt = time.Now().UTC()
	if o.Lines == nil {
		o.Lines = []domain.OrderLine{}
	}

	const q = `
UPDATE orders SET
    status = $2,
    cart_hash = $3,
    currency = $4,
    total_cents = $5,
    lines = $6,
    payment_method_id = $7,
    customer_id = $8,
    customer_note = $9,
    billing_address = $10,
    shipping_address = $11,
    updated_at = $12,
    paid_at = $13
WHERE id = $1
RETURNING ` + orderColumns
	res, err := scanOrder(r.pool.QueryRow(ctx, q,
		o.ID,
		string(o.Status),
		o.CartHash,
		o.Currency,
		o.TotalCents,
		o.Lines,
		o.PaymentMethodID,
		o.CustomerID,
		o.CustomerNote,
		o.BillingAddress,
		o.ShippingAddress,
		o.UpdatedAt,
		o.PaidAt,
	))
	if err != nil {
		r.logger.Printf("order repo: update id=%s error=%v", o.ID, err)
		return nil, err
	}
	return res, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var status string
	err := row.Scan(
		&o.ID,
		&o.SessionID,
		&status,
		&o.CartHash,
		&o.Currency,
		&o.TotalCents,
		&o.Lines,
		&o.PaymentMethodID,
		&o.CustomerID,
		&o.CustomerNote,
		&o.BillingAddress,
		&o.ShippingAddress,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.PaidAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	return &o, nil
}
