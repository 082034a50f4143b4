package httpserver

import (
	"errors"
	"net/http"
	"time"

	"storecheckout/internal/domain"
	cartsvc "storecheckout/internal/service/cart"
	checkoutsvc "storecheckout/internal/service/checkout"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Data    errorData `json:"data"`
}

type errorData struct {
	Status int    `json:"status"`
	ItemID string `json:"item_id,omitempty"`
}

type addressDTO struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type lineDTO struct {
	ID             string `json:"id,omitempty"`
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
}

type cartResponse struct {
	ID              string     `json:"id,omitempty"`
	Currency        string     `json:"currency"`
	TotalCents      int64      `json:"total_cents"`
	ItemsCount      int        `json:"items_count"`
	Items           []lineDTO  `json:"items"`
	BillingAddress  addressDTO `json:"billing_address"`
	ShippingAddress addressDTO `json:"shipping_address"`
}

type paymentResultDTO struct {
	PaymentStatus  string                `json:"payment_status"`
	PaymentDetails []paymentDataEntryDTO `json:"payment_details"`
	RedirectURL    string                `json:"redirect_url"`
}

type paymentDataEntryDTO struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type checkoutResponse struct {
	OrderID         string            `json:"order_id"`
	Status          string            `json:"status"`
	Currency        string            `json:"currency"`
	TotalCents      int64             `json:"total_cents"`
	Items           []lineDTO         `json:"items"`
	CustomerID      string            `json:"customer_id,omitempty"`
	CustomerNote    string            `json:"customer_note"`
	BillingAddress  addressDTO        `json:"billing_address"`
	ShippingAddress addressDTO        `json:"shipping_address"`
	PaymentMethod   string            `json:"payment_method"`
	PaymentMethods  []string          `json:"payment_methods,omitempty"`
	PaidAt          *time.Time        `json:"paid_at,omitempty"`
	PaymentResult   *paymentResultDTO `json:"payment_result,omitempty"`
	AccessToken     string            `json:"access_token,omitempty"`
}

func toAddressDTO(a domain.Address) addressDTO {
	return addressDTO{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Company:   a.Company,
		Street:    a.StreetName,
		City:      a.City,
		State:     a.State,
		Postcode:  a.PostalCode,
		Country:   a.Country,
		Email:     a.Email,
		Phone:     a.Phone,
	}
}

func (a addressDTO) toDomain() domain.Address {
	return domain.Address{
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Company:    a.Company,
		StreetName: a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.Postcode,
		Country:    a.Country,
		Email:      a.Email,
		Phone:      a.Phone,
	}
}

func toCartResponse(cart domain.Cart) cartResponse {
	items := make([]lineDTO, 0, len(cart.Lines))
	count := 0
	for _, l := range cart.Lines {
		items = append(items, lineDTO{
			ID:             l.ID,
			ProductID:      l.ProductID,
			Name:           l.Name,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
			TotalCents:     l.TotalCents,
		})
		count += l.Quantity
	}
	return cartResponse{
		ID:              cart.ID,
		Currency:        cart.Currency,
		TotalCents:      cart.TotalCents,
		ItemsCount:      count,
		Items:           items,
		BillingAddress:  toAddressDTO(cart.BillingAddress),
		ShippingAddress: toAddressDTO(cart.ShippingAddress),
	}
}

func toCheckoutResponse(order domain.Order) checkoutResponse {
	items := make([]lineDTO, 0, len(order.Lines))
	for _, l := range order.Lines {
		items = append(items, lineDTO{
			ProductID:      l.ProductID,
			Name:           l.Name,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
			TotalCents:     l.TotalCents,
		})
	}
	resp := checkoutResponse{
		OrderID:         order.ID,
		Status:          order.Status.String(),
		Currency:        order.Currency,
		TotalCents:      order.TotalCents,
		Items:           items,
		CustomerNote:    order.CustomerNote,
		BillingAddress:  toAddressDTO(order.BillingAddress),
		ShippingAddress: toAddressDTO(order.ShippingAddress),
		PaymentMethod:   order.PaymentMethodID,
		PaidAt:          order.PaidAt,
	}
	if order.CustomerID != nil {
		resp.CustomerID = *order.CustomerID
	}
	return resp
}

func withPaymentResult(resp checkoutResponse, res checkoutsvc.Result) checkoutResponse {
	details := []paymentDataEntryDTO{}
	if res.Message != "" {
		details = append(details, paymentDataEntryDTO{Key: "message", Value: res.Message})
	}
	resp.PaymentResult = &paymentResultDTO{
		PaymentStatus:  string(res.Status),
		PaymentDetails: details,
		RedirectURL:    res.RedirectURL,
	}
	resp.AccessToken = res.AccessToken
	return resp
}

// statusForPayment maps a gateway outcome to the POST /checkout status code.
func statusForPayment(s domain.PaymentStatus) int {
	switch s {
	case domain.PaymentStatusSuccess:
		return http.StatusOK
	case domain.PaymentStatusPending:
		return http.StatusAccepted
	case domain.PaymentStatusFailure:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func statusForKind(k domain.ErrorKind) int {
	switch k {
	case domain.KindCartValidation,
		domain.KindMissingPaymentMethod,
		domain.KindPaymentMethodUnavailable,
		domain.KindPaymentProcessing,
		domain.KindAccountRegistration:
		return http.StatusBadRequest
	case domain.KindInsufficientStock:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeCheckoutError(c *gin.Context, err error) {
	var ce *domain.CheckoutError
	if !errors.As(err, &ce) {
		ce = domain.NewSystemError(err)
	}
	status := statusForKind(ce.Kind)
	msg := ce.Message
	if status == http.StatusInternalServerError {
		msg = domain.NewSystemError(nil).Message
	}
	c.JSON(status, errorResponse{
		Code:    ce.Code,
		Message: msg,
		Data:    errorData{Status: status, ItemID: ce.ItemID},
	})
}

func writeCartError(c *gin.Context, err error) {
	var ie *cartsvc.InputError
	switch {
	case errors.As(err, &ie):
		c.JSON(http.StatusBadRequest, errorResponse{Code: "invalid_cart_update", Message: ie.Message, Data: errorData{Status: http.StatusBadRequest}})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Code: "not_found", Message: "Cart item not found.", Data: errorData{Status: http.StatusNotFound}})
	default:
		writeCheckoutError(c, err)
	}
}
