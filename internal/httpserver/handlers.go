package httpserver

import (
	"log"
	"net/http"
	"time"

	cartsvc "storecheckout/internal/service/cart"
	checkoutsvc "storecheckout/internal/service/checkout"

	"github.com/gin-gonic/gin"
)

type handlers struct {
	cart     cartService
	checkout checkoutService
	methods  methodLister
	logger   *log.Logger
}

type cartUpdateRequest struct {
	Actions []cartActionRequest `json:"actions"`
}

type cartActionRequest struct {
	Action     string      `json:"action"`
	ProductID  string      `json:"product_id"`
	ProductKey string      `json:"product_key"`
	LineItemID string      `json:"line_item_id"`
	Quantity   int         `json:"quantity"`
	Address    *addressDTO `json:"address"`
}

type checkoutUpdateRequest struct {
	PaymentMethod *string `json:"payment_method"`
	CustomerNote  *string `json:"customer_note"`
}

type checkoutRequest struct {
	PaymentMethod  string                `json:"payment_method"`
	PaymentData    []paymentDataEntryDTO `json:"payment_data"`
	CustomerNote   *string               `json:"customer_note"`
	HoldTTLSeconds int                   `json:"hold_ttl_seconds"`
	CreateAccount  *createAccountDTO     `json:"create_account"`
}

type createAccountDTO struct {
	Password string `json:"password"`
}

func badJSON(c *gin.Context) {
	c.JSON(http.StatusBadRequest, errorResponse{
		Code:    "invalid_json",
		Message: "Request body is not valid JSON.",
		Data:    errorData{Status: http.StatusBadRequest},
	})
}

func (h *handlers) getCart(c *gin.Context) {
	cart, err := h.cart.CurrentCart(c.Request.Context(), sessionFrom(c))
	if err != nil {
		h.logger.Printf("cart: get error=%v", err)
		writeCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(*cart))
}

func (h *handlers) updateCart(c *gin.Context) {
	var req cartUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	in := cartsvc.UpdateInput{Actions: make([]cartsvc.UpdateAction, 0, len(req.Actions))}
	for _, a := range req.Actions {
		action := cartsvc.UpdateAction{
			Action:     a.Action,
			ProductID:  a.ProductID,
			ProductKey: a.ProductKey,
			LineItemID: a.LineItemID,
			Quantity:   a.Quantity,
		}
		if a.Address != nil {
			addr := a.Address.toDomain()
			action.Address = &addr
		}
		in.Actions = append(in.Actions, action)
	}

	cart, err := h.cart.Update(c.Request.Context(), sessionFrom(c), in)
	if err != nil {
		writeCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(*cart))
}

func (h *handlers) getCheckout(c *gin.Context) {
	order, err := h.checkout.DraftOrder(c.Request.Context(), sessionFrom(c))
	if err != nil {
		writeCheckoutError(c, err)
		return
	}
	resp := toCheckoutResponse(*order)
	if h.methods != nil {
		resp.PaymentMethods = h.methods.Enabled()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) putCheckout(c *gin.Context) {
	var req checkoutUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	order, err := h.checkout.Update(c.Request.Context(), sessionFrom(c), checkoutsvc.UpdateRequest{
		PaymentMethodID: req.PaymentMethod,
		CustomerNote:    req.CustomerNote,
	})
	if err != nil {
		writeCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCheckoutResponse(*order))
}

func (h *handlers) postCheckout(c *gin.Context) {
	var req checkoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badJSON(c)
			return
		}
	}
	data := make(map[string]string, len(req.PaymentData))
	for _, entry := range req.PaymentData {
		data[entry.Key] = entry.Value
	}

	in := checkoutsvc.Request{
		PaymentMethodID: req.PaymentMethod,
		PaymentData:     data,
		CustomerNote:    req.CustomerNote,
		HoldTTL:         time.Duration(req.HoldTTLSeconds) * time.Second,
	}
	if req.CreateAccount != nil {
		in.CreateAccount = &checkoutsvc.AccountRequest{Password: req.CreateAccount.Password}
	}

	res, err := h.checkout.Checkout(c.Request.Context(), sessionFrom(c), in)
	if err != nil {
		writeCheckoutError(c, err)
		return
	}
	c.JSON(statusForPayment(res.Status), withPaymentResult(toCheckoutResponse(*res.Order), *res))
}

func (h *handlers) deleteCheckout(c *gin.Context) {
	if err := h.checkout.Abandon(c.Request.Context(), sessionFrom(c)); err != nil {
		writeCheckoutError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
