package product

import (
	"context"
	"errors"
	"testing"

	"storecheckout/internal/domain"
	"storecheckout/internal/testutil"
)

func TestPostgres_UpsertAndCatalogView(t *testing.T) {
	ctx := context.Background()
	pool := testutil.NewTestPool(t)
	repo := NewPostgres(pool, nil)

	parent, err := repo.Upsert(ctx, domain.Product{
		Key: "tee", SKU: "TEE", Name: "Tee", PriceCents: 1500, Currency: "USD",
		Purchasable: true, ManageStock: true, StockQuantity: 4,
	})
	if err != nil {
		t.Fatalf("Upsert parent: %v", err)
	}
	variation, err := repo.Upsert(ctx, domain.Product{
		Key: "tee-red", SKU: "TEE-R", Name: "Tee red", PriceCents: 1500, Currency: "USD",
		Purchasable: true, ManagedBy: parent.ID,
	})
	if err != nil {
		t.Fatalf("Upsert variation: %v", err)
	}

	managed, err := repo.ManagedStockID(ctx, variation.ID)
	if err != nil {
		t.Fatalf("ManagedStockID: %v", err)
	}
	if managed != parent.ID {
		t.Fatalf("expected variation managed by %s, got %s", parent.ID, managed)
	}

	level, err := repo.AvailableQuantity(ctx, parent.ID)
	if err != nil {
		t.Fatalf("AvailableQuantity: %v", err)
	}
	if level.Unlimited || level.Quantity != 4 {
		t.Fatalf("unexpected level %+v", level)
	}

	ok, err := repo.IsPurchasable(ctx, "00000000-0000-0000-0000-000000000000")
	if err != nil || ok {
		t.Fatalf("missing product should not be purchasable, got %v %v", ok, err)
	}

	updated, err := repo.Upsert(ctx, domain.Product{
		Key: "tee", SKU: "TEE", Name: "Tee", PriceCents: 1700, Currency: "USD",
		Purchasable: true, ManageStock: true, StockQuantity: 9,
	})
	if err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	if updated.ID != parent.ID {
		t.Fatalf("expected same id after update")
	}
}

func TestPostgres_GetByIDNotFound(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewPostgres(pool, nil)
	_, err := repo.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStockLevelOf(t *testing.T) {
	cases := []struct {
		name string
		p    domain.Product
		want domain.StockLevel
	}{
		{"untracked", domain.Product{ManageStock: false, StockQuantity: 3}, domain.StockLevel{Unlimited: true}},
		{"backorders", domain.Product{ManageStock: true, BackordersAllowed: true}, domain.StockLevel{Unlimited: true}},
		{"tracked", domain.Product{ManageStock: true, StockQuantity: 3}, domain.StockLevel{Quantity: 3}},
		{"negative", domain.Product{ManageStock: true, StockQuantity: -2}, domain.StockLevel{Quantity: 0}},
	}
	for _, tc := range cases {
		if got := stockLevelOf(tc.p); got != tc.want {
			t.Fatalf("%s: expected %+v, got %+v", tc.name, tc.want, got)
		}
	}
}

func TestMemory_ManagedStockID(t *testing.T) {
	m := NewMemory(
		domain.Product{ID: "parent", ManageStock: true, StockQuantity: 2, Purchasable: true},
		domain.Product{ID: "child", ManagedBy: "parent", Purchasable: true},
	)
	ctx := context.Background()
	id, err := m.ManagedStockID(ctx, "child")
	if err != nil || id != "parent" {
		t.Fatalf("expected parent, got %q %v", id, err)
	}
	id, err = m.ManagedStockID(ctx, "parent")
	if err != nil || id != "parent" {
		t.Fatalf("expected own id, got %q %v", id, err)
	}
	if _, err := m.ManagedStockID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
