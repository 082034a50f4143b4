package cart

import (
	"context"
	"errors"
	"strings"

	"storecheckout/internal/domain"
	cartrepo "storecheckout/internal/repository/cart"
)

// InputError reports a malformed cart update. Its message is safe to return
// to the caller.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func invalid(msg string) error { return &InputError{Message: msg} }

type Service struct {
	repo            cartRepo
	productRepo     productRepo
	defaultCurrency string
}

type cartRepo interface {
	Create(ctx context.Context, in cartrepo.CreateCartInput) (*domain.Cart, error)
	GetBySession(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddLineItem(ctx context.Context, cartID string, product domain.Product, quantity int) error
	ChangeLineItemQuantity(ctx context.Context, cartID, lineItemID string, quantity int) error
	RemoveLineItem(ctx context.Context, cartID, lineItemID string) error
	SetBillingAddress(ctx context.Context, cartID string, addr domain.Address) error
	SetShippingAddress(ctx context.Context, cartID string, addr domain.Address) error
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByKey(ctx context.Context, key string) (*domain.Product, error)
}

func New(repo cartrepo.Repository, productRepo productRepo, defaultCurrency string) *Service {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &Service{repo: repo, productRepo: productRepo, defaultCurrency: defaultCurrency}
}

type UpdateInput struct {
	Actions []UpdateAction `json:"actions"`
}

type UpdateAction struct {
	Action     string          `json:"action"`
	ProductID  string          `json:"productId,omitempty"`
	ProductKey string          `json:"productKey,omitempty"`
	LineItemID string          `json:"lineItemId,omitempty"`
	Quantity   int             `json:"quantity,omitempty"`
	Address    *domain.Address `json:"address,omitempty"`
}

// CurrentCart returns the session's cart, or an empty one when the session
// has not added anything yet.
func (s *Service) CurrentCart(ctx context.Context, sess domain.Session) (*domain.Cart, error) {
	cart, err := s.repo.GetBySession(ctx, sess.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.Cart{SessionID: sess.ID, CustomerID: sess.CustomerID, Currency: s.defaultCurrency}, nil
	}
	if err != nil {
		return nil, err
	}
	if cart.CustomerID == nil {
		cart.CustomerID = sess.CustomerID
	}
	return cart, nil
}

func (s *Service) Update(ctx context.Context, sess domain.Session, in UpdateInput) (*domain.Cart, error) {
	if len(in.Actions) == 0 {
		return nil, invalid("actions required")
	}
	cart, err := s.repo.GetBySession(ctx, sess.ID)
	if errors.Is(err, domain.ErrNotFound) {
		cart, err = s.repo.Create(ctx, cartrepo.CreateCartInput{
			SessionID:  sess.ID,
			CustomerID: sess.CustomerID,
			Currency:   s.defaultCurrency,
		})
	}
	if err != nil {
		return nil, err
	}

	for _, action := range in.Actions {
		if err := s.apply(ctx, cart.ID, action); err != nil {
			return nil, err
		}
	}
	return s.CurrentCart(ctx, sess)
}

func (s *Service) apply(ctx context.Context, cartID string, action UpdateAction) error {
	switch strings.ToLower(strings.TrimSpace(action.Action)) {
	case "addlineitem":
		if action.Quantity <= 0 {
			return invalid("quantity must be positive")
		}
		product, err := s.lookupProduct(ctx, action)
		if err != nil {
			return err
		}
		return s.repo.AddLineItem(ctx, cartID, *product, action.Quantity)
	case "changelineitemquantity":
		lineID := strings.TrimSpace(action.LineItemID)
		if lineID == "" {
			return invalid("lineItemId required")
		}
		if action.Quantity < 0 {
			return invalid("quantity must not be negative")
		}
		return s.repo.ChangeLineItemQuantity(ctx, cartID, lineID, action.Quantity)
	case "removelineitem":
		lineID := strings.TrimSpace(action.LineItemID)
		if lineID == "" {
			return invalid("lineItemId required")
		}
		return s.repo.RemoveLineItem(ctx, cartID, lineID)
	case "setbillingaddress":
		if action.Address == nil {
			return invalid("address required")
		}
		return s.repo.SetBillingAddress(ctx, cartID, *action.Address)
	case "setshippingaddress":
		if action.Address == nil {
			return invalid("address required")
		}
		return s.repo.SetShippingAddress(ctx, cartID, *action.Address)
	default:
		return invalid("unsupported action")
	}
}

func (s *Service) lookupProduct(ctx context.Context, action UpdateAction) (*domain.Product, error) {
	if s.productRepo == nil {
		return nil, errors.New("product repository unavailable")
	}
	var (
		product *domain.Product
		err     error
	)
	switch {
	case strings.TrimSpace(action.ProductID) != "":
		product, err = s.productRepo.GetByID(ctx, strings.TrimSpace(action.ProductID))
	case strings.TrimSpace(action.ProductKey) != "":
		product, err = s.productRepo.GetByKey(ctx, strings.TrimSpace(action.ProductKey))
	default:
		return nil, invalid("productId or productKey required")
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, invalid("product not found")
		}
		return nil, err
	}
	return product, nil
}
