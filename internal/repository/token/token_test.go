package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"storecheckout/internal/domain"
	customerrepo "storecheckout/internal/repository/customer"
	"storecheckout/internal/testutil"
)

func exerciseRepository(t *testing.T, repo Repository, customerID string) {
	t.Helper()
	ctx := context.Background()
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)

	tok := Token{Token: "tok-1", CustomerID: customerID, Kind: "access", ExpiresAt: expires}
	if err := repo.Create(ctx, tok); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, tok); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}

	got, err := repo.Get(ctx, "tok-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CustomerID != customerID || got.Kind != "access" || !got.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected token: %+v", got)
	}

	if err := repo.Delete(ctx, "tok-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, "tok-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "tok-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestMemoryRepository(t *testing.T) {
	exerciseRepository(t, NewMemory(), "cust-1")
}

func TestPostgresRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	c, err := customerrepo.NewPostgres(pool, nil).Create(context.Background(), domain.Customer{
		Email:        "tokens@example.com",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	exerciseRepository(t, NewPostgres(pool), c.ID)
}
