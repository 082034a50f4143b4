package draftorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"storecheckout/internal/domain"

	"github.com/google/uuid"
)

type orderRepo interface {
	Create(ctx context.Context, order domain.Order) (*domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, order domain.Order) (*domain.Order, error)
}

type sessionStore interface {
	DraftOrderID(ctx context.Context, sessionID string) (string, error)
	SetDraftOrderID(ctx context.Context, sessionID, orderID string) error
}

type catalog interface {
	AvailableQuantity(ctx context.Context, itemID string) (domain.StockLevel, error)
	IsPurchasable(ctx context.Context, itemID string) (bool, error)
}

// Service keeps one current draft order per session in step with its cart.
type Service struct {
	orders   orderRepo
	sessions sessionStore
	catalog  catalog
	logger   *log.Logger
	newID    func() string
}

func New(orders orderRepo, sessions sessionStore, catalog catalog, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{orders: orders, sessions: sessions, catalog: catalog, logger: logger, newID: uuid.NewString}
}

// ValidateCart checks the cart can be turned into an order: it has lines,
// every line is purchasable and the catalog holds enough units, ignoring
// other shoppers' holds.
func (s *Service) ValidateCart(ctx context.Context, cart domain.Cart) error {
	if err := s.validateContents(ctx, cart); err != nil {
		return err
	}
	for _, l := range cart.Lines {
		level, err := s.catalog.AvailableQuantity(ctx, l.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewCartValidationError("product_not_purchasable", fmt.Sprintf("%s cannot be purchased.", lineName(l)), l.ProductID)
			}
			return fmt.Errorf("stock level of %s: %w", l.ProductID, err)
		}
		if !level.Covers(l.Quantity) {
			return domain.NewCartValidationError(
				"product_out_of_stock",
				fmt.Sprintf("You cannot add that amount of %s to the cart because there is not enough stock (%d remaining).", lineName(l), level.Quantity),
				l.ProductID,
			)
		}
	}
	return nil
}

func (s *Service) validateContents(ctx context.Context, cart domain.Cart) error {
	if cart.IsEmpty() {
		return domain.NewCartValidationError("cart_empty", "Cannot create order from empty cart.", "")
	}
	for _, l := range cart.Lines {
		if l.Quantity <= 0 {
			return domain.NewCartValidationError("invalid_quantity", fmt.Sprintf("Quantity of %s must be positive.", lineName(l)), l.ProductID)
		}
		ok, err := s.catalog.IsPurchasable(ctx, l.ProductID)
		if err != nil {
			return fmt.Errorf("purchasable %s: %w", l.ProductID, err)
		}
		if !ok {
			return domain.NewCartValidationError("product_not_purchasable", fmt.Sprintf("%s cannot be purchased.", lineName(l)), l.ProductID)
		}
	}
	return nil
}

// Current returns the session's draft order without touching it, or nil.
func (s *Service) Current(ctx context.Context, sess domain.Session) (*domain.Order, error) {
	id, err := s.sessions.DraftOrderID(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}
	order, err := s.orders.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if order.SessionID != sess.ID {
		s.logger.Printf("draft order: order=%s not owned by session=%s", id, sess.ID)
		return nil, nil
	}
	return order, nil
}

// GetOrCreateDraftOrder returns the session's reusable order refreshed from
// the cart, or a new draft order recorded against the session.
func (s *Service) GetOrCreateDraftOrder(ctx context.Context, sess domain.Session, cart domain.Cart) (*domain.Order, error) {
	if err := s.validateContents(ctx, cart); err != nil {
		return nil, err
	}
	hash := cart.Hash()

	existing, err := s.Current(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("load draft order: %w", err)
	}
	if existing != nil && reusable(*existing, hash) {
		SyncOrderWithCart(existing, cart)
		existing.CartHash = hash
		updated, err := s.orders.Update(ctx, *existing)
		if err != nil {
			return nil, fmt.Errorf("update draft order: %w", err)
		}
		s.logger.Printf("draft order: reused order=%s status=%s session=%s", updated.ID, updated.Status, sess.ID)
		return updated, nil
	}

	order := domain.Order{
		ID:        s.newID(),
		SessionID: sess.ID,
		Status:    domain.OrderStatusDraft,
		CartHash:  hash,
	}
	SyncOrderWithCart(&order, cart)
	if sess.CustomerID != nil && order.CustomerID == nil {
		order.CustomerID = sess.CustomerID
	}
	created, err := s.orders.Create(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("create draft order: %w", err)
	}
	if err := s.sessions.SetDraftOrderID(ctx, sess.ID, created.ID); err != nil {
		return nil, fmt.Errorf("remember draft order: %w", err)
	}
	s.logger.Printf("draft order: created order=%s session=%s", created.ID, sess.ID)
	return created, nil
}

// reusable reports whether order can carry on this checkout. Drafts always
// can; pending and failed orders only while the cart is unchanged.
func reusable(order domain.Order, cartHash string) bool {
	switch order.Status {
	case domain.OrderStatusDraft:
		return true
	case domain.OrderStatusPendingPayment, domain.OrderStatusFailed:
		return order.CartHash == cartHash
	default:
		return false
	}
}

// SyncOrderWithCart overwrites the order's lines, addresses, customer and
// totals from the cart. Status and ID are left alone.
func SyncOrderWithCart(order *domain.Order, cart domain.Cart) {
	order.Currency = cart.Currency
	order.BillingAddress = cart.BillingAddress
	order.ShippingAddress = cart.ShippingAddress
	if cart.CustomerID != nil {
		order.CustomerID = cart.CustomerID
	}

	lines := make([]domain.OrderLine, 0, len(cart.Lines))
	var total int64
	for _, l := range cart.Lines {
		if l.Quantity <= 0 {
			continue
		}
		lineTotal := l.UnitPriceCents * int64(l.Quantity)
		lines = append(lines, domain.OrderLine{
			ProductID:      l.ProductID,
			Name:           l.Name,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
			TotalCents:     lineTotal,
		})
		total += lineTotal
	}
	order.Lines = lines
	order.TotalCents = total
}

func lineName(l domain.CartLine) string {
	if l.Name != "" {
		return l.Name
	}
	return l.ProductID
}
