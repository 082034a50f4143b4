package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

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

const productColumns = `id::text, key, sku, name, price_cents, currency, purchasable, manage_stock, backorders_allowed, stock_quantity, COALESCE(managed_by::text, ''), created_at`

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p, err := r.fetch(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Printf("product repo: get id=%s not found", id)
		} else {
			r.logger.Printf("product repo: get id=%s error=%v", id, err)
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) GetByKey(ctx context.Context, key string) (*domain.Product, error) {
	return r.fetch(ctx, `SELECT `+productColumns+` FROM products WHERE key = $1`, key)
}

func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (id, key, sku, name, price_cents, currency, purchasable, manage_stock, backorders_allowed, stock_quantity, managed_by)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, '')::uuid)
ON CONFLICT (key) DO UPDATE SET
    sku = EXCLUDED.sku,
    name = EXCLUDED.name,
    price_cents = EXCLUDED.price_cents,
    currency = EXCLUDED.currency,
    purchasable = EXCLUDED.purchasable,
    manage_stock = EXCLUDED.manage_stock,
    backorders_allowed = EXCLUDED.backorders_allowed,
    stock_quantity = EXCLUDED.stock_quantity,
    managed_by = EXCLUDED.managed_by
RETURNING id::text, created_at
`
	res := product
	err := r.pool.QueryRow(ctx, q,
		product.ID,
		product.Key,
		product.SKU,
		product.Name,
		product.PriceCents,
		product.Currency,
		product.Purchasable,
		product.ManageStock,
		product.BackordersAllowed,
		product.StockQuantity,
		product.ManagedBy,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		r.logger.Printf("product repo: upsert key=%s error=%v", product.Key, err)
		return nil, err
	}
	if product.ID != "" && res.ID != product.ID {
		return nil, fmt.Errorf("product repo: id mismatch for key=%s existing_id=%s import_id=%s", product.Key, res.ID, product.ID)
	}
	r.logger.Printf("product repo: upserted key=%s id=%s stock=%d", res.Key, res.ID, res.StockQuantity)
	return &res, nil
}

func (r *postgresRepo) AvailableQuantity(ctx context.Context, itemID string) (domain.StockLevel, error) {
	p, err := r.GetByID(ctx, itemID)
	if err != nil {
		return domain.StockLevel{}, err
	}
	return stockLevelOf(*p), nil
}

func (r *postgresRepo) IsPurchasable(ctx context.Context, itemID string) (bool, error) {
	var purchasable bool
	err := r.pool.QueryRow(ctx, `SELECT purchasable FROM products WHERE id = $1`, itemID).Scan(&purchasable)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return purchasable, nil
}

func (r *postgresRepo) ManagedStockID(ctx context.Context, itemID string) (string, error) {
	var managedBy string
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(managed_by::text, id::text) FROM products WHERE id = $1`, itemID).Scan(&managedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return managedBy, nil
}

func (r *postgresRepo) fetch(ctx context.Context, q string, args ...any) (*domain.Product, error) {
	var p domain.Product
	err := r.pool.QueryRow(ctx, q, args...).Scan(
		&p.ID,
		&p.Key,
		&p.SKU,
		&p.Name,
		&p.PriceCents,
		&p.Currency,
		&p.Purchasable,
		&p.ManageStock,
		&p.BackordersAllowed,
		&p.StockQuantity,
		&p.ManagedBy,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
