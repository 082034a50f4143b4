package reservation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"storecheckout/internal/domain"
	"storecheckout/internal/repository/stock"
)

// Catalog is the read side of the product catalog used to size holds.
type Catalog interface {
	AvailableQuantity(ctx context.Context, itemID string) (domain.StockLevel, error)
	IsPurchasable(ctx context.Context, itemID string) (bool, error)
	ManagedStockID(ctx context.Context, itemID string) (string, error)
}

type failureRecorder interface {
	ReservationFailed()
}

type Service struct {
	ledger  stock.Ledger
	catalog Catalog
	logger  *log.Logger
	metrics failureRecorder
}

type Option func(*Service)

// WithFailureRecorder counts rejected reservations.
func WithFailureRecorder(r failureRecorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

func New(ledger stock.Ledger, catalog Catalog, logger *log.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Service{ledger: ledger, catalog: catalog, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type managedLine struct {
	itemID   string
	name     string
	quantity int
}

// ReserveForOrder places one hold per managed stock id covering every line of
// the order. Either all holds are placed or none remain.
func (s *Service) ReserveForOrder(ctx context.Context, order domain.Order, ttl time.Duration) error {
	lines, err := s.aggregate(ctx, order)
	if err != nil {
		return err
	}

	for _, line := range lines {
		level, err := s.catalog.AvailableQuantity(ctx, line.itemID)
		if err != nil {
			s.rollback(ctx, order.ID)
			return fmt.Errorf("available quantity of %s: %w", line.itemID, err)
		}
		if level.Unlimited {
			continue
		}

		err = s.ledger.UpsertHold(ctx, stock.HoldRequest{
			HolderID:  order.ID,
			ItemID:    line.itemID,
			Quantity:  line.quantity,
			Available: level.Quantity,
			TTL:       ttl,
		})
		if err == nil {
			continue
		}
		s.rollback(ctx, order.ID)
		if errors.Is(err, domain.ErrInsufficientStock) {
			if s.metrics != nil {
				s.metrics.ReservationFailed()
			}
			s.logger.Printf("reservation: order=%s item=%s qty=%d not enough stock", order.ID, line.itemID, line.quantity)
			return domain.NewInsufficientStockError(
				"product_not_enough_stock",
				fmt.Sprintf("Not enough units of %s are available in stock to fulfil this order.", line.name),
				line.itemID,
			)
		}
		return fmt.Errorf("hold %s for order %s: %w", line.itemID, order.ID, err)
	}
	return nil
}

// ReleaseForOrder drops every hold of the order. Releasing twice is fine.
func (s *Service) ReleaseForOrder(ctx context.Context, order domain.Order) error {
	if err := s.ledger.DeleteHolds(ctx, order.ID); err != nil {
		return fmt.Errorf("release holds for order %s: %w", order.ID, err)
	}
	return nil
}

// aggregate folds order lines onto their managed stock ids, sorted by id so
// concurrent reservations contend in the same order.
func (s *Service) aggregate(ctx context.Context, order domain.Order) ([]managedLine, error) {
	byItem := make(map[string]*managedLine)
	for _, l := range order.Lines {
		if l.Quantity <= 0 {
			continue
		}
		ok, err := s.catalog.IsPurchasable(ctx, l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("purchasable %s: %w", l.ProductID, err)
		}
		if !ok {
			return nil, domain.NewInsufficientStockError(
				"product_out_of_stock",
				fmt.Sprintf("%s is out of stock and cannot be purchased.", displayName(l)),
				l.ProductID,
			)
		}
		managedID, err := s.catalog.ManagedStockID(ctx, l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("managed stock id of %s: %w", l.ProductID, err)
		}
		if existing, ok := byItem[managedID]; ok {
			existing.quantity += l.Quantity
			continue
		}
		byItem[managedID] = &managedLine{itemID: managedID, name: displayName(l), quantity: l.Quantity}
	}

	out := make([]managedLine, 0, len(byItem))
	for _, ml := range byItem {
		out = append(out, *ml)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].itemID < out[j].itemID })
	return out, nil
}

func (s *Service) rollback(ctx context.Context, orderID string) {
	if err := s.ledger.DeleteHolds(ctx, orderID); err != nil {
		s.logger.Printf("reservation: rollback order=%s error=%v", orderID, err)
	}
}

func displayName(l domain.OrderLine) string {
	if l.Name != "" {
		return l.Name
	}
	return l.ProductID
}
