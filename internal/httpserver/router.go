package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"storecheckout/internal/domain"
	"storecheckout/internal/metrics"
	cartsvc "storecheckout/internal/service/cart"
	checkoutsvc "storecheckout/internal/service/checkout"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type cartService interface {
	CurrentCart(ctx context.Context, sess domain.Session) (*domain.Cart, error)
	Update(ctx context.Context, sess domain.Session, in cartsvc.UpdateInput) (*domain.Cart, error)
}

type checkoutService interface {
	DraftOrder(ctx context.Context, sess domain.Session) (*domain.Order, error)
	Update(ctx context.Context, sess domain.Session, req checkoutsvc.UpdateRequest) (*domain.Order, error)
	Checkout(ctx context.Context, sess domain.Session, req checkoutsvc.Request) (*checkoutsvc.Result, error)
	Abandon(ctx context.Context, sess domain.Session) error
}

type methodLister interface {
	Enabled() []string
}

// Deps holds the services behind the routes.
type Deps struct {
	Cart           cartService
	Checkout       checkoutService
	PaymentMethods methodLister
	// Customers is optional. Without it bearer tokens are rejected and the
	// account routes are not mounted.
	Customers   customerService
	Metrics     *metrics.Metrics
	Ready       map[string]Pinger
	CORSOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, deps Deps) (*gin.Engine, error) {
	if deps.Cart == nil || deps.Checkout == nil {
		return nil, errors.New("httpserver: cart and checkout services are required")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery(), requestMetrics(deps.Metrics))
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(corsConfig(deps.CORSOrigins)))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Ready))
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	router.POST("/sessions", issueSession)

	if deps.Customers != nil {
		ch := &customerHandlers{svc: deps.Customers, logger: logger}
		router.POST("/customers", ch.signup)
		router.POST("/customers/login", ch.login)
	}

	h := &handlers{cart: deps.Cart, checkout: deps.Checkout, methods: deps.PaymentMethods, logger: logger}
	shop := router.Group("/", sessionMiddleware(deps.Customers))
	shop.GET("/cart", h.getCart)
	shop.POST("/cart", h.updateCart)
	shop.GET("/checkout", h.getCheckout)
	shop.PUT("/checkout", h.putCheckout)
	shop.POST("/checkout", h.postCheckout)
	shop.DELETE("/checkout", h.deleteCheckout)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", sessionHeader, authHeader},
		ExposeHeaders: []string{"Content-Length", sessionHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

func requestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequest(route, c.Writer.Status())
	}
}
