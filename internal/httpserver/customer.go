package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"storecheckout/internal/domain"
	customersvc "storecheckout/internal/service/customer"

	"github.com/gin-gonic/gin"
)

type customerService interface {
	Signup(ctx context.Context, in customersvc.SignupInput) (*domain.Customer, error)
	Login(ctx context.Context, email, password string) (*domain.Customer, string, string, error)
	LookupByToken(ctx context.Context, token string) (*domain.Customer, error)
	AccessTTLSeconds() int
}

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type customerDTO struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"`
	Customer     customerDTO `json:"customer"`
}

func toCustomerDTO(c domain.Customer) customerDTO {
	return customerDTO{
		ID:        c.ID,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		CreatedAt: c.CreatedAt,
	}
}

type customerHandlers struct {
	svc    customerService
	logger *log.Logger
}

func (h *customerHandlers) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	customer, err := h.svc.Signup(c.Request.Context(), customersvc.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"customer": toCustomerDTO(*customer)})
}

func (h *customerHandlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	customer, access, refresh, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    h.svc.AccessTTLSeconds(),
		Customer:     toCustomerDTO(*customer),
	})
}

func (h *customerHandlers) writeError(c *gin.Context, err error) {
	status, code, msg := http.StatusInternalServerError, "internal_error", "Internal server error."
	switch {
	case errors.Is(err, customersvc.ErrInvalidCredentials):
		status, code, msg = http.StatusUnauthorized, "invalid_credentials", "Customer account with the given credentials not found."
	case errors.Is(err, domain.ErrInvalidEmail):
		status, code, msg = http.StatusBadRequest, "invalid_email", "Please provide a valid email address."
	case errors.Is(err, domain.ErrWeakPassword):
		status, code, msg = http.StatusBadRequest, "invalid_password", err.Error()
	case errors.Is(err, domain.ErrAlreadyExists):
		status, code, msg = http.StatusConflict, "email_exists", "An account is already registered with your email address."
	default:
		h.logger.Printf("customer: error=%v", err)
	}
	c.JSON(status, errorResponse{Code: code, Message: msg, Data: errorData{Status: status}})
}
