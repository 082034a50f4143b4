package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storecheckout/internal/domain"
	customersvc "storecheckout/internal/service/customer"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionHeader = "X-Session-ID"
	authHeader    = "Authorization"
	sessionCtxKey = "checkoutSession"
)

type customerLookup interface {
	LookupByToken(ctx context.Context, token string) (*domain.Customer, error)
}

// sessionMiddleware resolves the shopper session from request headers. The
// customer is only attached when a bearer token resolves to an account.
func sessionMiddleware(customers customerLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(sessionHeader))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
				Code:    "missing_session",
				Message: sessionHeader + " header is required.",
				Data:    errorData{Status: http.StatusBadRequest},
			})
			return
		}
		sess := domain.Session{ID: id}
		if raw := strings.TrimSpace(c.GetHeader(authHeader)); raw != "" {
			customer, err := resolveCustomer(c.Request.Context(), customers, raw)
			if err != nil {
				if errors.Is(err, customersvc.ErrInvalidToken) {
					abortInvalidToken(c)
					return
				}
				writeCheckoutError(c, err)
				c.Abort()
				return
			}
			sess.CustomerID = &customer.ID
		}
		c.Set(sessionCtxKey, sess)
		c.Next()
	}
}

func resolveCustomer(ctx context.Context, customers customerLookup, header string) (*domain.Customer, error) {
	token, ok := bearerToken(header)
	if !ok || customers == nil {
		return nil, customersvc.ErrInvalidToken
	}
	return customers.LookupByToken(ctx, token)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortInvalidToken(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
		Code:    "invalid_token",
		Message: "The access token is invalid or has expired.",
		Data:    errorData{Status: http.StatusUnauthorized},
	})
}

func sessionFrom(c *gin.Context) domain.Session {
	if v, ok := c.Get(sessionCtxKey); ok {
		if sess, ok := v.(domain.Session); ok {
			return sess
		}
	}
	return domain.Session{}
}

// issueSession hands an anonymous shopper a fresh session id.
func issueSession(c *gin.Context) {
	id := uuid.NewString()
	c.Header(sessionHeader, id)
	c.JSON(http.StatusCreated, gin.H{"session_id": id})
}
