package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storecheckout/internal/clock"
	"storecheckout/internal/domain"
	productrepo "storecheckout/internal/repository/product"
	"storecheckout/internal/repository/stock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ttl = 10 * time.Minute

type countingRecorder struct {
	mu    sync.Mutex
	count int
}

func (c *countingRecorder) ReservationFailed() {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

func managed(id string, qty int) domain.Product {
	return domain.Product{ID: id, Name: id, Purchasable: true, ManageStock: true, StockQuantity: qty}
}

func orderOf(id string, lines ...domain.OrderLine) domain.Order {
	return domain.Order{ID: id, Status: domain.OrderStatusDraft, Lines: lines}
}

func line(productID string, qty int) domain.OrderLine {
	return domain.OrderLine{ProductID: productID, Name: productID, Quantity: qty}
}

func newService(t *testing.T, products ...domain.Product) (*Service, *stock.Memory, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ledger := stock.NewMemory(clk)
	return New(ledger, productrepo.NewMemory(products...), nil), ledger, clk
}

func TestReserveLastUnitUnderContention(t *testing.T) {
	svc, ledger, _ := newService(t, managed("sku-1", 1))
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, id := range []string{"order-a", "order-b"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i] = svc.ReserveForOrder(ctx, orderOf(id, line("sku-1", 1)), ttl)
		}(i, id)
	}
	wg.Wait()

	successes, insufficient := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case domain.KindOf(err) == domain.KindInsufficientStock:
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, insufficient)

	reserved, err := ledger.ReservedQuantity(ctx, "sku-1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, reserved)
}

func TestReleaseIsIdempotent(t *testing.T) {
	svc, ledger, _ := newService(t, managed("sku-1", 3))
	ctx := context.Background()
	order := orderOf("order-a", line("sku-1", 2))

	require.NoError(t, svc.ReserveForOrder(ctx, order, ttl))
	require.NoError(t, svc.ReleaseForOrder(ctx, order))
	require.NoError(t, svc.ReleaseForOrder(ctx, order))

	reserved, err := ledger.ReservedQuantity(ctx, "sku-1", "")
	require.NoError(t, err)
	assert.Zero(t, reserved)
}

func TestPartialFailureRollsBack(t *testing.T) {
	svc, ledger, _ := newService(t, managed("sku-1", 5), managed("sku-2", 1))
	ctx := context.Background()

	require.NoError(t, svc.ReserveForOrder(ctx, orderOf("order-other", line("sku-1", 1)), ttl))
	before, err := ledger.ReservedQuantity(ctx, "sku-1", "order-other")
	require.NoError(t, err)

	err = svc.ReserveForOrder(ctx, orderOf("order-a", line("sku-1", 2), line("sku-2", 3)), ttl)
	var ce *domain.CheckoutError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, domain.KindInsufficientStock, ce.Kind)
	assert.Equal(t, "product_not_enough_stock", ce.Code)
	assert.Equal(t, "sku-2", ce.ItemID)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	after, err := ledger.ReservedQuantity(ctx, "sku-1", "order-other")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, ledger.Holds("order-a"))
}

func TestSharedManagedStockIsAggregated(t *testing.T) {
	parent := managed("parent", 3)
	small := domain.Product{ID: "var-small", Name: "Small", Purchasable: true, ManagedBy: "parent"}
	large := domain.Product{ID: "var-large", Name: "Large", Purchasable: true, ManagedBy: "parent"}
	svc, ledger, _ := newService(t, parent, small, large)
	ctx := context.Background()

	require.NoError(t, svc.ReserveForOrder(ctx, orderOf("order-a", line("var-small", 1), line("var-large", 2)), ttl))
	holds := ledger.Holds("order-a")
	require.Len(t, holds, 1)
	assert.Equal(t, "parent", holds[0].ItemID)
	assert.Equal(t, 3, holds[0].Quantity)

	err := svc.ReserveForOrder(ctx, orderOf("order-b", line("var-large", 1)), ttl)
	assert.Equal(t, domain.KindInsufficientStock, domain.KindOf(err))
}

func TestUnlimitedItemsAreSkipped(t *testing.T) {
	untracked := domain.Product{ID: "ebook", Name: "Ebook", Purchasable: true}
	backorder := domain.Product{ID: "preorder", Name: "Preorder", Purchasable: true, ManageStock: true, BackordersAllowed: true}
	svc, ledger, _ := newService(t, untracked, backorder, managed("sku-1", 1))

	require.NoError(t, svc.ReserveForOrder(context.Background(), orderOf("order-a",
		line("ebook", 50), line("preorder", 10), line("sku-1", 1), line("sku-zero", 0),
	), ttl))

	holds := ledger.Holds("order-a")
	require.Len(t, holds, 1)
	assert.Equal(t, "sku-1", holds[0].ItemID)
}

func TestNotPurchasableIsOutOfStock(t *testing.T) {
	hidden := managed("sku-hidden", 10)
	hidden.Purchasable = false
	recorder := &countingRecorder{}
	clk := clock.NewManual(time.Now())
	ledger := stock.NewMemory(clk)
	svc := New(ledger, productrepo.NewMemory(hidden, managed("sku-1", 5)), nil, WithFailureRecorder(recorder))

	err := svc.ReserveForOrder(context.Background(), orderOf("order-a", line("sku-1", 1), line("sku-hidden", 1)), ttl)
	var ce *domain.CheckoutError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "product_out_of_stock", ce.Code)
	assert.Equal(t, "sku-hidden", ce.ItemID)
	assert.Empty(t, ledger.Holds("order-a"))
	assert.Zero(t, recorder.count)

	err = svc.ReserveForOrder(context.Background(), orderOf("order-b", line("sku-1", 6)), ttl)
	assert.Equal(t, domain.KindInsufficientStock, domain.KindOf(err))
	assert.Equal(t, 1, recorder.count)
}

func TestZeroTTLHoldDoesNotBlock(t *testing.T) {
	svc, _, _ := newService(t, managed("sku-1", 2))
	ctx := context.Background()

	require.NoError(t, svc.ReserveForOrder(ctx, orderOf("order-a", line("sku-1", 2)), 0))
	require.NoError(t, svc.ReserveForOrder(ctx, orderOf("order-b", line("sku-1", 2)), ttl))
}

func TestHoldsExpireAfterTTL(t *testing.T) {
	svc, _, clk := newService(t, managed("sku-1", 2))
	ctx := context.Background()

	require.NoError(t, svc.ReserveForOrder(ctx, orderOf("order-a", line("sku-1", 2)), ttl))
	require.Error(t, svc.ReserveForOrder(ctx, orderOf("order-b", line("sku-1", 1)), ttl))

	clk.Advance(ttl + time.Second)
	require.NoError(t, svc.ReserveForOrder(ctx, orderOf("order-b", line("sku-1", 1)), ttl))
}

func TestReReserveReplacesOwnHold(t *testing.T) {
	svc, ledger, _ := newService(t, managed("sku-1", 3))
	ctx := context.Background()
	order := orderOf("order-a", line("sku-1", 3))

	require.NoError(t, svc.ReserveForOrder(ctx, order, ttl))
	require.NoError(t, svc.ReserveForOrder(ctx, order, ttl))

	reserved, err := ledger.ReservedQuantity(ctx, "sku-1", "")
	require.NoError(t, err)
	assert.Equal(t, 3, reserved)
}

func TestSweeperRemovesExpiredHolds(t *testing.T) {
	svc, ledger, clk := newService(t, managed("sku-1", 2))
	ctx := context.Background()
	require.NoError(t, svc.ReserveForOrder(ctx, orderOf("order-a", line("sku-1", 1)), time.Minute))

	sweeper := NewSweeper(ledger, time.Millisecond, nil)
	assert.Zero(t, sweeper.SweepOnce(ctx))

	clk.Advance(2 * time.Minute)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		sweeper.Run(runCtx)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(ledger.Holds("order-a")) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
