package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/textlane/textlane/internal/billingcycle"
	contactsapp "github.com/textlane/textlane/internal/contacts/app"
	contactspg "github.com/textlane/textlane/internal/contacts/repository/postgres"
	identityapp "github.com/textlane/textlane/internal/identity/app"
	identitydomain "github.com/textlane/textlane/internal/identity/domain"
	identityrepo "github.com/textlane/textlane/internal/identity/repository"
	identitypg "github.com/textlane/textlane/internal/identity/repository/postgres"
	ledgerapp "github.com/textlane/textlane/internal/ledger/app"
	ledgerpg "github.com/textlane/textlane/internal/ledger/repository/postgres"
	messagingapp "github.com/textlane/textlane/internal/messaging/app"
	messagingpg "github.com/textlane/textlane/internal/messaging/repository/postgres"
	numberingapp "github.com/textlane/textlane/internal/numbering/app"
	numberingpg "github.com/textlane/textlane/internal/numbering/repository/postgres"
	"github.com/textlane/textlane/internal/payments"
	paymentsapp "github.com/textlane/textlane/internal/payments/app"
	"github.com/textlane/textlane/internal/platform/config"
	"github.com/textlane/textlane/internal/platform/database"
	"github.com/textlane/textlane/internal/platform/logger"
	"github.com/textlane/textlane/internal/platform/messagebroker"
	"github.com/textlane/textlane/internal/realtime"
	"github.com/textlane/textlane/internal/scope"
	"github.com/textlane/textlane/internal/smsprovider"
	subaccountsapp "github.com/textlane/textlane/internal/subaccounts/app"
	transporthttp "github.com/textlane/textlane/internal/transport/http"
)

// userDirectory adapts the user repository to the ledger's ActorDirectory.
type userDirectory struct {
	repo identityrepo.UserRepository
	db   database.Querier
}

func (d userDirectory) GetActor(ctx context.Context, id uuid.UUID) (*identitydomain.User, error) {
	return d.repo.GetByID(ctx, d.db, id)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("starting server", "port", cfg.ServerPort)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewDBPool(ctx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	broker, err := messagebroker.NewNatsClient(cfg.NATSUrl, "textlane-server", appLogger)
	if err != nil {
		appLogger.Error("NATS connection failed", "error", err)
		os.Exit(1)
	}
	defer broker.Close()

	smsPrice, err := decimal.NewFromString(cfg.SMSPrice)
	if err != nil {
		appLogger.Error("invalid SMS_PRICE", "error", err, "value", cfg.SMSPrice)
		os.Exit(1)
	}

	// Repositories.
	userRepo := identitypg.NewPgUserRepository()
	walletRepo := ledgerpg.NewPgWalletRepository()
	txRepo := ledgerpg.NewPgTransactionRepository()
	numberRepo := numberingpg.NewPgNumberRepository()
	contactRepo := contactspg.NewPgContactRepository()
	messageRepo := messagingpg.NewPgMessageRepository()

	txRunner := database.NewPgxTxRunner(pool)

	// Provider adapters.
	var provider smsprovider.Adapter
	if cfg.ProviderName == "twilio" {
		provider = smsprovider.NewTwilioProvider(appLogger, cfg.ProviderBaseURL, cfg.ProviderSID, cfg.ProviderToken,
			&http.Client{Timeout: cfg.RequestTimeout()})
	} else {
		provider = smsprovider.NewMockProvider(appLogger, "mock", 0.02, 50, 250)
	}
	paymentGateway := payments.NewMockGateway(0, 100*time.Millisecond)

	// App services.
	authService := identityapp.NewAuthService(userRepo, pool, identityapp.AuthConfig{
		JWTSecret:      cfg.JWTSecret,
		JWTExpiryHours: cfg.JWTExpiryHours,
	}, appLogger)

	ledgerService := ledgerapp.NewLedgerService(walletRepo, txRepo,
		userDirectory{repo: userRepo, db: pool}, pool, txRunner, cfg.DefaultCurrency, appLogger)
	numberService := numberingapp.NewNumberService(numberRepo, provider, ledgerService, pool, txRunner, appLogger)
	contactService := contactsapp.NewContactService(contactRepo, pool, appLogger)
	resolver := scope.NewResolver(numberRepo, walletRepo, pool, appLogger)
	hub := realtime.NewHub(appLogger)
	gateway := messagingapp.NewGateway(messageRepo, contactRepo, numberRepo,
		resolver, ledgerService, provider, hub, pool, txRunner, smsPrice, appLogger)
	manager := subaccountsapp.NewManager(userRepo, numberRepo, walletRepo, ledgerService, pool, appLogger)
	billingRunner := billingcycle.NewRunner(numberRepo, ledgerService, pool, cfg.BillingInterval(), appLogger)
	paymentService := paymentsapp.NewPaymentService(paymentGateway, ledgerService, billingRunner, appLogger)

	consumer := messagingapp.NewInboundConsumer(broker, gateway, appLogger)
	if err := consumer.Start(ctx); err != nil {
		appLogger.Error("inbound consumer failed to start", "error", err)
		os.Exit(1)
	}

	// HTTP surface.
	router := transporthttp.NewRouter(transporthttp.Handlers{
		Auth:    transporthttp.NewAuthHandler(authService),
		Contact: transporthttp.NewContactHandler(contactService, gateway),
		SMS:     transporthttp.NewSMSHandler(gateway, broker),
		Number:  transporthttp.NewNumberHandler(numberService),
		Admin:   transporthttp.NewAdminHandler(manager, numberService, ledgerService),
		Wallet:  transporthttp.NewWalletHandler(ledgerService, paymentService, billingRunner, numberService),
		Events:  transporthttp.NewEventsHandler(hub, appLogger),
	}, authService)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if cfg.BillingInterval() > 0 {
		g.Go(func() error {
			billingRunner.Start(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		appLogger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("server stopped")
}
