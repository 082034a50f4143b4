package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storecheckout/internal/domain"
	"storecheckout/internal/metrics"
	cartsvc "storecheckout/internal/service/cart"
	checkoutsvc "storecheckout/internal/service/checkout"
	customersvc "storecheckout/internal/service/customer"

	"github.com/gin-gonic/gin"
)

type stubCart struct {
	cart    *domain.Cart
	err     error
	lastIn  cartsvc.UpdateInput
	lastSes domain.Session
}

func (s *stubCart) CurrentCart(_ context.Context, sess domain.Session) (*domain.Cart, error) {
	s.lastSes = sess
	return s.cart, s.err
}

func (s *stubCart) Update(_ context.Context, sess domain.Session, in cartsvc.UpdateInput) (*domain.Cart, error) {
	s.lastSes = sess
	s.lastIn = in
	return s.cart, s.err
}

type stubCheckout struct {
	order     *domain.Order
	result    *checkoutsvc.Result
	err       error
	lastReq   checkoutsvc.Request
	lastUpd   checkoutsvc.UpdateRequest
	abandoned bool
}

func (s *stubCheckout) DraftOrder(context.Context, domain.Session) (*domain.Order, error) {
	return s.order, s.err
}

func (s *stubCheckout) Update(_ context.Context, _ domain.Session, req checkoutsvc.UpdateRequest) (*domain.Order, error) {
	s.lastUpd = req
	return s.order, s.err
}

func (s *stubCheckout) Checkout(_ context.Context, _ domain.Session, req checkoutsvc.Request) (*checkoutsvc.Result, error) {
	s.lastReq = req
	return s.result, s.err
}

func (s *stubCheckout) Abandon(context.Context, domain.Session) error {
	s.abandoned = true
	return s.err
}

type stubCustomers struct {
	byToken  map[string]domain.Customer
	signErr  error
	loginErr error
	lastIn   customersvc.SignupInput
}

func (s *stubCustomers) Signup(_ context.Context, in customersvc.SignupInput) (*domain.Customer, error) {
	s.lastIn = in
	if s.signErr != nil {
		return nil, s.signErr
	}
	return &domain.Customer{ID: "cust-new", Email: in.Email}, nil
}

func (s *stubCustomers) Login(_ context.Context, email, _ string) (*domain.Customer, string, string, error) {
	if s.loginErr != nil {
		return nil, "", "", s.loginErr
	}
	return &domain.Customer{ID: "cust-9", Email: email}, "access", "refresh", nil
}

func (s *stubCustomers) LookupByToken(_ context.Context, token string) (*domain.Customer, error) {
	c, ok := s.byToken[token]
	if !ok {
		return nil, customersvc.ErrInvalidToken
	}
	return &c, nil
}

func (s *stubCustomers) AccessTTLSeconds() int { return 3600 }

type stubMethods []string

func (m stubMethods) Enabled() []string { return m }

func newTestRouter(t *testing.T, deps Deps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router, err := buildRouter(nil, deps)
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(sessionHeader, "sess-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:         "order-1",
		Status:     domain.OrderStatusDraft,
		Currency:   "USD",
		TotalCents: 1500,
		Lines: []domain.OrderLine{
			{ProductID: "p1", Name: "Mug", Quantity: 3, UnitPriceCents: 500, TotalCents: 1500},
		},
	}
}

func TestBuildRouterRequiresServices(t *testing.T) {
	if _, err := buildRouter(nil, Deps{}); err == nil {
		t.Fatalf("expected error without services")
	}
}

func TestMissingSessionHeader(t *testing.T) {
	router := newTestRouter(t, Deps{Cart: &stubCart{}, Checkout: &stubCheckout{}})
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decode[errorResponse](t, rec)
	if body.Code != "missing_session" {
		t.Fatalf("unexpected code %q", body.Code)
	}
}

func TestIssueSession(t *testing.T) {
	router := newTestRouter(t, Deps{Cart: &stubCart{}, Checkout: &stubCheckout{}})
	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	body := decode[map[string]string](t, rec)
	if body["session_id"] == "" || rec.Header().Get(sessionHeader) != body["session_id"] {
		t.Fatalf("unexpected session response %v header=%q", body, rec.Header().Get(sessionHeader))
	}
}

func TestGetCartPassesSessionAndCustomer(t *testing.T) {
	carts := &stubCart{cart: &domain.Cart{
		ID:         "cart-1",
		Currency:   "USD",
		TotalCents: 1000,
		Lines:      []domain.CartLine{{ID: "l1", ProductID: "p1", Quantity: 2, UnitPriceCents: 500, TotalCents: 1000}},
	}}
	customers := &stubCustomers{byToken: map[string]domain.Customer{"tok-9": {ID: "cust-9"}}}
	router := newTestRouter(t, Deps{Cart: carts, Checkout: &stubCheckout{}, Customers: customers})

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(sessionHeader, "sess-1")
	req.Header.Set(authHeader, "Bearer tok-9")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if carts.lastSes.ID != "sess-1" || carts.lastSes.CustomerID == nil || *carts.lastSes.CustomerID != "cust-9" {
		t.Fatalf("unexpected session %+v", carts.lastSes)
	}
	body := decode[cartResponse](t, rec)
	if body.ItemsCount != 2 || len(body.Items) != 1 || body.Items[0].ProductID != "p1" {
		t.Fatalf("unexpected cart body %+v", body)
	}
}

func TestUpdateCartMapsActions(t *testing.T) {
	carts := &stubCart{cart: &domain.Cart{ID: "cart-1", Currency: "USD"}}
	router := newTestRouter(t, Deps{Cart: carts, Checkout: &stubCheckout{}})

	rec := do(router, http.MethodPost, "/cart", `{"actions":[
		{"action":"addLineItem","product_key":"mug","quantity":2},
		{"action":"setShippingAddress","address":{"city":"Berlin","postcode":"10115","country":"DE"}}
	]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(carts.lastIn.Actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(carts.lastIn.Actions))
	}
	add := carts.lastIn.Actions[0]
	if add.ProductKey != "mug" || add.Quantity != 2 {
		t.Fatalf("unexpected add action %+v", add)
	}
	addr := carts.lastIn.Actions[1].Address
	if addr == nil || addr.City != "Berlin" || addr.PostalCode != "10115" {
		t.Fatalf("unexpected address %+v", addr)
	}
}

func TestUpdateCartErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		body string
		want int
	}{
		{"bad json", nil, `{`, http.StatusBadRequest},
		{"input", &cartsvc.InputError{Message: "quantity must be positive"}, `{"actions":[]}`, http.StatusBadRequest},
		{"not found", domain.ErrNotFound, `{"actions":[]}`, http.StatusNotFound},
		{"internal", errors.New("db down"), `{"actions":[]}`, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(t, Deps{Cart: &stubCart{err: tc.err}, Checkout: &stubCheckout{}})
			rec := do(router, http.MethodPost, "/cart", tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetCheckoutListsPaymentMethods(t *testing.T) {
	router := newTestRouter(t, Deps{
		Cart:           &stubCart{},
		Checkout:       &stubCheckout{order: sampleOrder()},
		PaymentMethods: stubMethods{"cheque", "cod"},
	})

	rec := do(router, http.MethodGet, "/checkout", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode[checkoutResponse](t, rec)
	if body.OrderID != "order-1" || body.Status != "draft" || body.TotalCents != 1500 {
		t.Fatalf("unexpected checkout body %+v", body)
	}
	if len(body.PaymentMethods) != 2 || body.PaymentMethods[0] != "cheque" {
		t.Fatalf("unexpected payment methods %v", body.PaymentMethods)
	}
}

func TestPutCheckoutPassesOptionalFields(t *testing.T) {
	checkout := &stubCheckout{order: sampleOrder()}
	router := newTestRouter(t, Deps{Cart: &stubCart{}, Checkout: checkout})

	rec := do(router, http.MethodPut, "/checkout", `{"payment_method":"cod"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if checkout.lastUpd.PaymentMethodID == nil || *checkout.lastUpd.PaymentMethodID != "cod" {
		t.Fatalf("payment method not passed: %+v", checkout.lastUpd)
	}
	if checkout.lastUpd.CustomerNote != nil {
		t.Fatalf("absent note must stay nil")
	}
}

func TestPostCheckoutStatusFollowsPaymentResult(t *testing.T) {
	cases := []struct {
		status domain.PaymentStatus
		want   int
	}{
		{domain.PaymentStatusSuccess, http.StatusOK},
		{domain.PaymentStatusPending, http.StatusAccepted},
		{domain.PaymentStatusFailure, http.StatusBadRequest},
		{domain.PaymentStatusError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			checkout := &stubCheckout{result: &checkoutsvc.Result{
				Status:      tc.status,
				Order:       sampleOrder(),
				RedirectURL: "/checkout/order-received/order-1",
			}}
			router := newTestRouter(t, Deps{Cart: &stubCart{}, Checkout: checkout})

			rec := do(router, http.MethodPost, "/checkout", `{"payment_method":"cod","payment_data":[{"key":"ref","value":"abc"}],"hold_ttl_seconds":30}`)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
			body := decode[checkoutResponse](t, rec)
			if body.PaymentResult == nil || body.PaymentResult.PaymentStatus != string(tc.status) {
				t.Fatalf("unexpected payment result %+v", body.PaymentResult)
			}
			if checkout.lastReq.PaymentData["ref"] != "abc" || checkout.lastReq.HoldTTL.Seconds() != 30 {
				t.Fatalf("unexpected request %+v", checkout.lastReq)
			}
		})
	}
}

func TestPostCheckoutWithoutBody(t *testing.T) {
	checkout := &stubCheckout{result: &checkoutsvc.Result{Status: domain.PaymentStatusSuccess, Order: sampleOrder()}}
	router := newTestRouter(t, Deps{Cart: &stubCart{}, Checkout: checkout})

	rec := do(router, http.MethodPost, "/checkout", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if checkout.lastReq.PaymentMethodID != "" {
		t.Fatalf("expected empty payment method, got %q", checkout.lastReq.PaymentMethodID)
	}
}

func TestCheckoutErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		want     int
		wantCode string
		wantItem string
	}{
		{"cart", domain.NewCartValidationError("cart_empty", "Cannot create order from empty cart.", ""), http.StatusBadRequest, "cart_empty", ""},
		{"stock", domain.NewInsufficientStockError("product_not_enough_stock", "Not enough Mug in stock.", "p1"), http.StatusForbidden, "product_not_enough_stock", "p1"},
		{"method", &domain.CheckoutError{Kind: domain.KindMissingPaymentMethod, Code: "missing_payment_method", Message: "No payment method provided."}, http.StatusBadRequest, "missing_payment_method", ""},
		{"unavailable", &domain.CheckoutError{Kind: domain.KindPaymentMethodUnavailable, Code: "payment_method_disabled", Message: "This payment gateway is not available."}, http.StatusBadRequest, "payment_method_disabled", ""},
		{"account", &domain.CheckoutError{Kind: domain.KindAccountRegistration, Code: "registration-error-email-exists", Message: "An account is already registered with your email address. Please log in."}, http.StatusBadRequest, "registration-error-email-exists", ""},
		{"plain", errors.New("connection refused"), http.StatusInternalServerError, "unknown_server_error", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(t, Deps{Cart: &stubCart{}, Checkout: &stubCheckout{err: tc.err}})
			rec := do(router, http.MethodPost, "/checkout", `{"payment_method":"cod"}`)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
			body := decode[errorResponse](t, rec)
			if body.Code != tc.wantCode || body.Data.ItemID != tc.wantItem || body.Data.Status != tc.want {
				t.Fatalf("unexpected error body %+v", body)
			}
			if strings.Contains(body.Message, "connection refused") {
				t.Fatalf("internal detail leaked: %q", body.Message)
			}
		})
	}
}

func TestDeleteCheckout(t *testing.T) {
	checkout := &stubCheckout{}
	router := newTestRouter(t, Deps{Cart: &stubCart{}, Checkout: checkout})

	rec := do(router, http.MethodDelete, "/checkout", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if !checkout.abandoned {
		t.Fatalf("expected abandon to be called")
	}
}

func TestHealthAndReadiness(t *testing.T) {
	healthy := PingFunc(func(context.Context) error { return nil })
	broken := PingFunc(func(context.Context) error { return errors.New("down") })

	router := newTestRouter(t, Deps{Cart: &stubCart{}, Checkout: &stubCheckout{}, Ready: map[string]Pinger{"postgres": healthy}})
	if rec := do(router, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}
	if rec := do(router, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Fatalf("readyz: expected 200, got %d", rec.Code)
	}

	router = newTestRouter(t, Deps{Cart: &stubCart{}, Checkout: &stubCheckout{}, Ready: map[string]Pinger{"redis": broken}})
	rec := do(router, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "redis") {
		t.Fatalf("expected redis unavailable, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpointCountsRoutes(t *testing.T) {
	m := metrics.New()
	router := newTestRouter(t, Deps{Cart: &stubCart{cart: &domain.Cart{Currency: "USD"}}, Checkout: &stubCheckout{}, Metrics: m})

	do(router, http.MethodGet, "/cart", "")
	rec := do(router, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `route="/cart"`) {
		t.Fatalf("expected /cart request counted, got:\n%s", rec.Body.String())
	}
}

func TestCustomerIDHeaderIsIgnored(t *testing.T) {
	carts := &stubCart{cart: &domain.Cart{Currency: "USD"}}
	router := newTestRouter(t, Deps{Cart: carts, Checkout: &stubCheckout{}, Customers: &stubCustomers{}})

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(sessionHeader, "sess-1")
	req.Header.Set("X-Customer-ID", "cust-victim")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if carts.lastSes.CustomerID != nil {
		t.Fatalf("customer id must come from a verified token, got %q", *carts.lastSes.CustomerID)
	}
}

func TestInvalidBearerTokenIsRejected(t *testing.T) {
	cases := map[string]Deps{
		"unknown token":       {Cart: &stubCart{}, Checkout: &stubCheckout{}, Customers: &stubCustomers{}},
		"no customer service": {Cart: &stubCart{}, Checkout: &stubCheckout{}},
	}
	for name, deps := range cases {
		t.Run(name, func(t *testing.T) {
			router := newTestRouter(t, deps)
			req := httptest.NewRequest(http.MethodGet, "/cart", nil)
			req.Header.Set(sessionHeader, "sess-1")
			req.Header.Set(authHeader, "Bearer forged")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
			}
			if body := decode[errorResponse](t, rec); body.Code != "invalid_token" {
				t.Fatalf("unexpected error body %+v", body)
			}
		})
	}
}

func TestSignupAndLoginRoutes(t *testing.T) {
	customers := &stubCustomers{}
	router := newTestRouter(t, Deps{Cart: &stubCart{}, Checkout: &stubCheckout{}, Customers: customers})

	rec := do(router, http.MethodPost, "/customers", `{"email":"ada@example.com","password":"Abcdefg1","first_name":"Ada"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if customers.lastIn.Email != "ada@example.com" || customers.lastIn.FirstName != "Ada" {
		t.Fatalf("unexpected signup input %+v", customers.lastIn)
	}

	rec = do(router, http.MethodPost, "/customers/login", `{"email":"ada@example.com","password":"Abcdefg1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	tok := decode[tokenResponse](t, rec)
	if tok.AccessToken != "access" || tok.TokenType != "Bearer" || tok.ExpiresIn != 3600 || tok.Customer.ID != "cust-9" {
		t.Fatalf("unexpected token response %+v", tok)
	}
}

func TestCustomerRouteErrors(t *testing.T) {
	cases := []struct {
		name   string
		svc    *stubCustomers
		path   string
		body   string
		status int
	}{
		{"duplicate email", &stubCustomers{signErr: domain.ErrAlreadyExists}, "/customers", `{"email":"a@example.com","password":"Abcdefg1"}`, http.StatusConflict},
		{"weak password", &stubCustomers{signErr: domain.ErrWeakPassword}, "/customers", `{"email":"a@example.com","password":"x"}`, http.StatusBadRequest},
		{"bad credentials", &stubCustomers{loginErr: customersvc.ErrInvalidCredentials}, "/customers/login", `{"email":"a@example.com","password":"nope"}`, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(t, Deps{Cart: &stubCart{}, Checkout: &stubCheckout{}, Customers: tc.svc})
			rec := do(router, http.MethodPost, tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPostCheckoutCreatesAccount(t *testing.T) {
	checkout := &stubCheckout{result: &checkoutsvc.Result{
		Status:      domain.PaymentStatusSuccess,
		Order:       sampleOrder(),
		AccessToken: "tok-new",
	}}
	router := newTestRouter(t, Deps{Cart: &stubCart{}, Checkout: checkout})

	rec := do(router, http.MethodPost, "/checkout", `{"payment_method":"cod","create_account":{"password":"Abcdefg1"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if checkout.lastReq.CreateAccount == nil || checkout.lastReq.CreateAccount.Password != "Abcdefg1" {
		t.Fatalf("create account not passed through: %+v", checkout.lastReq)
	}
	if body := decode[checkoutResponse](t, rec); body.AccessToken != "tok-new" {
		t.Fatalf("expected access token in response, got %+v", body)
	}
}
