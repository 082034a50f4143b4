package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"storecheckout/internal/clock"
	"storecheckout/internal/config"
	"storecheckout/internal/db"
	"storecheckout/internal/events"
	"storecheckout/internal/httpserver"
	"storecheckout/internal/metrics"
	"storecheckout/internal/payment"
	cartrepo "storecheckout/internal/repository/cart"
	customerrepo "storecheckout/internal/repository/customer"
	orderrepo "storecheckout/internal/repository/order"
	productrepo "storecheckout/internal/repository/product"
	sessionrepo "storecheckout/internal/repository/session"
	"storecheckout/internal/repository/stock"
	tokenrepo "storecheckout/internal/repository/token"
	cartsvc "storecheckout/internal/service/cart"
	checkoutsvc "storecheckout/internal/service/checkout"
	customersvc "storecheckout/internal/service/customer"
	"storecheckout/internal/service/draftorder"
	"storecheckout/internal/service/reservation"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	ready := map[string]httpserver.Pinger{"postgres": dbpool}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		ready["redis"] = httpserver.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	clk := clock.NewSystem()
	m := metrics.New()

	productRepo := productrepo.NewPostgres(dbpool, logger)
	cartRepo := cartrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)

	var ledger stock.Ledger
	switch cfg.LedgerBackend {
	case "redis":
		if rdb == nil {
			logger.Fatalf("LEDGER_BACKEND=redis requires REDIS_ADDR")
		}
		ledger = stock.NewRedis(rdb, clk, logger)
	case "postgres":
		ledger = stock.NewPostgres(dbpool, clk, logger)
	case "memory":
		ledger = stock.NewMemory(clk)
	default:
		logger.Fatalf("unknown LEDGER_BACKEND %q", cfg.LedgerBackend)
	}

	var sessions sessionrepo.Store
	switch cfg.SessionBackend {
	case "redis":
		if rdb == nil {
			logger.Fatalf("SESSION_BACKEND=redis requires REDIS_ADDR")
		}
		sessions = sessionrepo.NewRedis(rdb, cfg.SessionTTL)
	case "postgres":
		sessions = sessionrepo.NewPostgres(dbpool, cfg.SessionTTL, logger)
	case "memory":
		sessions = sessionrepo.NewMemory()
	default:
		logger.Fatalf("unknown SESSION_BACKEND %q", cfg.SessionBackend)
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.KafkaBrokers != "" {
		publisher = events.NewKafkaPublisher(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaOrderTopic)
		logger.Printf("publishing order events to kafka topic=%s", cfg.KafkaOrderTopic)
	}
	defer publisher.Close()

	gateways := buildGateways(cfg, logger)

	customerService := customersvc.New(
		customerrepo.NewPostgres(dbpool, logger),
		tokenrepo.NewPostgres(dbpool),
		customersvc.WithClock(clk),
		customersvc.WithLogger(logger),
	)
	cartService := cartsvc.New(cartRepo, productRepo, cfg.DefaultCurrency)
	drafts := draftorder.New(orderRepo, sessions, productRepo, logger)
	reservations := reservation.New(ledger, productRepo, logger, reservation.WithFailureRecorder(m))
	checkoutService := checkoutsvc.New(checkoutsvc.Deps{
		Carts:        cartService,
		Drafts:       drafts,
		Reservations: reservations,
		Orders:       orderRepo,
		Gateways:     gateways,
		Sessions:     sessions,
		Accounts:     customerService,
	},
		checkoutsvc.WithHoldTTL(cfg.HoldTTL),
		checkoutsvc.WithOrderReceivedURL(cfg.OrderReceivedURL),
		checkoutsvc.WithPublisher(publisher),
		checkoutsvc.WithMetrics(m),
		checkoutsvc.WithClock(clk),
		checkoutsvc.WithLogger(logger),
	)

	sweeper := reservation.NewSweeper(ledger, cfg.SweepInterval, logger)
	go sweeper.Run(ctx)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		Cart:           cartService,
		Checkout:       checkoutService,
		PaymentMethods: gateways,
		Customers:      customerService,
		Metrics:        m,
		Ready:          ready,
		CORSOrigins:    cfg.CORSOrigins,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s ledger=%s sessions=%s", cfg.HTTPAddr, cfg.LedgerBackend, cfg.SessionBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}

// buildGateways registers the configured payment methods. Unknown ids are
// served by the remote gateway, which stays disabled without REMOTE_PAYMENT_URL.
func buildGateways(cfg config.Config, logger *log.Logger) *payment.Registry {
	reg := payment.NewRegistry()
	for _, id := range cfg.PaymentMethods {
		switch id {
		case "cod":
			reg.Register(payment.CashOnDelivery())
		case "cheque":
			reg.Register(payment.Cheque())
		default:
			reg.Register(payment.NewRemoteGateway(id, cfg.RemotePaymentURL, cfg.RemotePaymentTimeout))
			if cfg.RemotePaymentURL == "" {
				logger.Printf("payment method %s registered but disabled: REMOTE_PAYMENT_URL not set", id)
			}
		}
	}
	logger.Printf("payment methods enabled=%v", reg.Enabled())
	return reg
}
