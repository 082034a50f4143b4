package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"storecheckout/internal/clock"
	"storecheckout/internal/domain"
	"storecheckout/internal/events"
	"storecheckout/internal/payment"

	"github.com/google/uuid"
)

// DefaultHoldTTL is how long stock stays held for an unpaid order.
const DefaultHoldTTL = 10 * time.Minute

type cartProvider interface {
	CurrentCart(ctx context.Context, sess domain.Session) (*domain.Cart, error)
}

type draftOrders interface {
	ValidateCart(ctx context.Context, cart domain.Cart) error
	GetOrCreateDraftOrder(ctx context.Context, sess domain.Session, cart domain.Cart) (*domain.Order, error)
	Current(ctx context.Context, sess domain.Session) (*domain.Order, error)
}

type reserver interface {
	ReserveForOrder(ctx context.Context, order domain.Order, ttl time.Duration) error
	ReleaseForOrder(ctx context.Context, order domain.Order) error
}

type orderStore interface {
	Update(ctx context.Context, order domain.Order) (*domain.Order, error)
}

type gatewayRegistry interface {
	Lookup(id string) (payment.Gateway, bool)
}

type sessionStore interface {
	Clear(ctx context.Context, sessionID string) error
}

type accountCreator interface {
	CreateAccount(ctx context.Context, in domain.NewAccount) (customerID, accessToken string, err error)
}

type recorder interface {
	CheckoutAttempt(outcome string)
	ObserveGateway(method string, d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) CheckoutAttempt(string) {}
func (noopRecorder) ObserveGateway(string, time.Duration) {}

// Deps are the collaborators every checkout needs.
type Deps struct {
	Carts        cartProvider
	Drafts       draftOrders
	Reservations reserver
	Orders       orderStore
	Gateways     gatewayRegistry
	Sessions     sessionStore
	// Accounts is optional; without it account creation requests are ignored.
	Accounts accountCreator
}

type Service struct {
	carts        cartProvider
	drafts       draftOrders
	reservations reserver
	orders       orderStore
	gateways     gatewayRegistry
	sessions     sessionStore
	accounts     accountCreator

	publisher        events.Publisher
	metrics          recorder
	clock            clock.Clock
	logger           *log.Logger
	holdTTL          time.Duration
	orderReceivedURL string
	newKey           func() string
}

type Option func(*Service)

// WithHoldTTL overrides DefaultHoldTTL.
func WithHoldTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

// WithOrderReceivedURL sets the redirect base used when a successful gateway
// gives no redirect of its own.
func WithOrderReceivedURL(u string) Option {
	return func(s *Service) {
		if u != "" {
			s.orderReceivedURL = strings.TrimRight(u, "/")
		}
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithMetrics(r recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(deps Deps, opts ...Option) *Service {
	s := &Service{
		carts:            deps.Carts,
		drafts:           deps.Drafts,
		reservations:     deps.Reservations,
		orders:           deps.Orders,
		gateways:         deps.Gateways,
		sessions:         deps.Sessions,
		accounts:         deps.Accounts,
		publisher:        events.Noop{},
		metrics:          noopRecorder{},
		clock:            clock.NewSystem(),
		logger:           log.New(io.Discard, "", 0),
		holdTTL:          DefaultHoldTTL,
		orderReceivedURL: "/checkout/order-received",
		newKey:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Request struct {
	PaymentMethodID string
	PaymentData     map[string]string
	CustomerNote    *string
	// HoldTTL shortens the service hold TTL when positive. Longer values
	// are capped at the service TTL.
	HoldTTL time.Duration
	// CreateAccount registers the shopper under the billing email when the
	// session has no customer yet.
	CreateAccount *AccountRequest
}

type AccountRequest struct {
	Password string
}

type UpdateRequest struct {
	PaymentMethodID *string
	CustomerNote    *string
}

type Result struct {
	Status      domain.PaymentStatus
	Order       *domain.Order
	RedirectURL string
	// Message is safe to show the shopper.
	Message string
	// AccessToken is set when the attempt created a customer account.
	AccessToken string
}

// attempt tracks one run through the checkout states.
type attempt struct {
	sess     domain.Session
	state    State
	order    *domain.Order
	reserved bool
	token    string
	logger   *log.Logger
}

func (a *attempt) to(next State) {
	a.logger.Printf("checkout: session=%s order=%s %s -> %s", a.sess.ID, a.orderID(), a.state, next)
	a.state = next
}

func (a *attempt) orderID() string {
	if a.order == nil {
		return "-"
	}
	return a.order.ID
}

// Checkout runs a full checkout attempt for the session's cart.
func (s *Service) Checkout(ctx context.Context, sess domain.Session, req Request) (res *Result, err error) {
	a := &attempt{sess: sess, state: StateValidating, logger: s.logger}
	defer func() { s.record(res, err) }()
	defer s.recoverPanic(ctx, a, &err)

	if err := s.prepare(ctx, a, req.CustomerNote, s.ttl(req.HoldTTL)); err != nil {
		return nil, err
	}
	if req.CreateAccount != nil {
		if err := s.processCustomer(ctx, a, *req.CreateAccount); err != nil {
			return nil, err
		}
	}
	order := a.order

	if !order.NeedsPayment() {
		a.to(StateFinalizing)
		return s.finalize(ctx, a, domain.PaymentResult{Status: domain.PaymentStatusSuccess})
	}

	a.to(StateAwaitingGateway)
	methodID := strings.TrimSpace(req.PaymentMethodID)
	if methodID == "" {
		return nil, s.fail(ctx, a, errMissingPaymentMethod())
	}
	gw, ok := s.gateways.Lookup(methodID)
	if !ok {
		return nil, s.fail(ctx, a, errPaymentMethodUnavailable(methodID))
	}
	order.PaymentMethodID = methodID
	if err := s.setStatus(ctx, a, domain.OrderStatusPendingPayment); err != nil {
		return nil, s.fail(ctx, a, err)
	}

	result, err := s.process(ctx, gw, domain.PaymentContext{
		Order:           *a.order,
		PaymentMethodID: methodID,
		PaymentData:     payment.SanitizeData(req.PaymentData),
		IdempotencyKey:  a.order.ID + "-" + s.newKey(),
	})
	if err != nil {
		var decline *payment.DeclineError
		msg := ""
		if errors.As(err, &decline) {
			msg = decline.Message
		}
		return nil, s.fail(ctx, a, errPaymentProcessing(msg, err))
	}
	if !result.Status.Valid() {
		return nil, s.fail(ctx, a, errInvalidPaymentResult(fmt.Errorf("gateway %s returned status %q", methodID, result.Status)))
	}

	a.to(StateFinalizing)
	return s.finalize(ctx, a, result)
}

// DraftOrder validates the cart, syncs the draft order and holds its stock.
func (s *Service) DraftOrder(ctx context.Context, sess domain.Session) (order *domain.Order, err error) {
	a := &attempt{sess: sess, state: StateValidating, logger: s.logger}
	defer s.recoverPanic(ctx, a, &err)

	if err := s.prepare(ctx, a, nil, s.holdTTL); err != nil {
		return nil, err
	}
	return a.order, nil
}

// Update applies checkout form fields to the draft order.
func (s *Service) Update(ctx context.Context, sess domain.Session, req UpdateRequest) (order *domain.Order, err error) {
	a := &attempt{sess: sess, state: StateValidating, logger: s.logger}
	defer s.recoverPanic(ctx, a, &err)

	if err := s.prepare(ctx, a, req.CustomerNote, s.holdTTL); err != nil {
		return nil, err
	}
	if req.PaymentMethodID != nil {
		id := strings.TrimSpace(*req.PaymentMethodID)
		if id != "" {
			if _, ok := s.gateways.Lookup(id); !ok {
				return nil, s.fail(ctx, a, errPaymentMethodUnavailable(id))
			}
		}
		a.order.PaymentMethodID = id
	}
	updated, err := s.orders.Update(ctx, *a.order)
	if err != nil {
		return nil, s.fail(ctx, a, fmt.Errorf("save order: %w", err))
	}
	return updated, nil
}

// Abandon releases the session's holds and cancels its unpaid order.
func (s *Service) Abandon(ctx context.Context, sess domain.Session) (err error) {
	a := &attempt{sess: sess, state: StateValidating, logger: s.logger}
	defer s.recoverPanic(ctx, a, &err)

	order, err := s.drafts.Current(ctx, sess)
	if err != nil {
		return domain.NewSystemError(fmt.Errorf("load draft order: %w", err))
	}
	if order != nil {
		a.order = order
		// holds of a paid order stay until the catalog decrements stock
		if order.Status.Payable() {
			if err := s.reservations.ReleaseForOrder(ctx, *order); err != nil {
				return domain.NewSystemError(err)
			}
			if err := s.setStatus(ctx, a, domain.OrderStatusCancelled); err != nil {
				return domain.NewSystemError(err)
			}
		}
		s.logger.Printf("checkout: session=%s order=%s abandoned", sess.ID, order.ID)
	}
	if err := s.sessions.Clear(ctx, sess.ID); err != nil {
		return domain.NewSystemError(err)
	}
	return nil
}

// processCustomer creates an account for a guest session from the order's
// billing details and attaches it to the order.
func (s *Service) processCustomer(ctx context.Context, a *attempt, req AccountRequest) error {
	if s.accounts == nil || a.sess.CustomerID != nil {
		return nil
	}
	billing := a.order.BillingAddress
	id, token, err := s.accounts.CreateAccount(ctx, domain.NewAccount{
		Email:     billing.Email,
		Password:  req.Password,
		FirstName: billing.FirstName,
		LastName:  billing.LastName,
	})
	if err != nil {
		return s.fail(ctx, a, errAccountRegistration(err))
	}
	a.sess.CustomerID = &id
	a.order.CustomerID = &id
	a.token = token
	updated, err := s.orders.Update(ctx, *a.order)
	if err != nil {
		return s.fail(ctx, a, fmt.Errorf("save order customer: %w", err))
	}
	a.order = updated
	s.logger.Printf("checkout: session=%s order=%s created customer=%s", a.sess.ID, a.order.ID, id)
	return nil
}

// prepare walks Validating, ObtainingOrder and ReservingStock.
func (s *Service) prepare(ctx context.Context, a *attempt, note *string, ttl time.Duration) error {
	cart, err := s.carts.CurrentCart(ctx, a.sess)
	if err != nil {
		return s.fail(ctx, a, fmt.Errorf("load cart: %w", err))
	}
	if err := s.drafts.ValidateCart(ctx, *cart); err != nil {
		return s.fail(ctx, a, err)
	}

	a.to(StateObtainingOrder)
	order, err := s.drafts.GetOrCreateDraftOrder(ctx, a.sess, *cart)
	if err != nil {
		return s.fail(ctx, a, err)
	}
	a.order = order
	if note != nil {
		order.CustomerNote = strings.TrimSpace(*note)
	}

	a.to(StateReservingStock)
	if err := s.reservations.ReserveForOrder(ctx, *order, ttl); err != nil {
		return s.fail(ctx, a, err)
	}
	a.reserved = true
	return nil
}

func (s *Service) finalize(ctx context.Context, a *attempt, result domain.PaymentResult) (*Result, error) {
	switch result.Status {
	case domain.PaymentStatusSuccess:
		now := s.clock.Now()
		a.order.PaidAt = &now
		if err := s.setStatus(ctx, a, domain.OrderStatusCompleted); err != nil {
			return nil, s.fail(ctx, a, err)
		}
		if err := s.sessions.Clear(ctx, a.sess.ID); err != nil {
			s.logger.Printf("checkout: session=%s clear error=%v", a.sess.ID, err)
		}
		redirect := result.RedirectURL
		if redirect == "" {
			redirect = s.orderReceivedURL + "/" + a.order.ID
		}
		a.to(StateCompleted)
		return &Result{Status: result.Status, Order: a.order, RedirectURL: redirect, AccessToken: a.token}, nil

	case domain.PaymentStatusPending:
		a.to(StateCompleted)
		return &Result{Status: result.Status, Order: a.order, RedirectURL: result.RedirectURL, AccessToken: a.token}, nil

	default:
		// holds stay until TTL so a retry can reuse this order
		if err := s.setStatus(ctx, a, domain.OrderStatusFailed); err != nil {
			return nil, s.fail(ctx, a, err)
		}
		msg := result.ErrorMessage
		if msg == "" {
			msg = genericPaymentMessage
		}
		s.logger.Printf("checkout: session=%s order=%s payment %s via %s", a.sess.ID, a.order.ID, result.Status, a.order.PaymentMethodID)
		a.to(StateFailed)
		return &Result{Status: result.Status, Order: a.order, RedirectURL: result.RedirectURL, Message: msg, AccessToken: a.token}, nil
	}
}

// process calls the gateway, turning a panic into an error.
func (s *Service) process(ctx context.Context, gw payment.Gateway, pc domain.PaymentContext) (res domain.PaymentResult, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gateway %s panicked: %v", gw.ID(), r)
		}
		s.metrics.ObserveGateway(gw.ID(), time.Since(start))
	}()
	return gw.ProcessPayment(ctx, pc)
}

func (s *Service) setStatus(ctx context.Context, a *attempt, status domain.OrderStatus) error {
	prev := a.order.Status
	a.order.Status = status
	updated, err := s.orders.Update(ctx, *a.order)
	if err != nil {
		return fmt.Errorf("save order %s as %s: %w", a.order.ID, status, err)
	}
	a.order = updated
	if prev != status {
		evt := events.NewOrderStatusChanged(*updated, prev, s.clock.Now())
		if err := s.publisher.PublishOrderStatus(ctx, evt); err != nil {
			s.logger.Printf("checkout: publish order=%s status=%s error=%v", updated.ID, status, err)
		}
	}
	return nil
}

// fail releases any holds taken by the attempt and normalises err for the
// caller. Raw causes are logged, never returned in Message.
func (s *Service) fail(ctx context.Context, a *attempt, err error) *domain.CheckoutError {
	var ce *domain.CheckoutError
	if !errors.As(err, &ce) {
		ce = domain.NewSystemError(err)
	}
	if a.reserved && a.order != nil {
		if rerr := s.reservations.ReleaseForOrder(ctx, *a.order); rerr != nil {
			s.logger.Printf("checkout: release order=%s error=%v", a.order.ID, rerr)
		}
		a.reserved = false
	}
	s.logger.Printf("checkout: session=%s order=%s failed in %s kind=%s code=%s err=%v", a.sess.ID, a.orderID(), a.state, ce.Kind, ce.Code, err)
	a.state = StateFailed
	return ce
}

func (s *Service) recoverPanic(ctx context.Context, a *attempt, errp *error) {
	if r := recover(); r != nil {
		*errp = s.fail(ctx, a, domain.NewSystemError(fmt.Errorf("panic: %v", r)))
	}
}

func (s *Service) record(res *Result, err error) {
	if err != nil {
		s.metrics.CheckoutAttempt(string(domain.KindOf(err)))
		return
	}
	if res != nil {
		s.metrics.CheckoutAttempt(string(res.Status))
	}
}

func (s *Service) ttl(override time.Duration) time.Duration {
	if override > 0 && override < s.holdTTL {
		return override
	}
	return s.holdTTL
}
