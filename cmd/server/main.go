package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/personal-finance-ledger/internal/account"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/api"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/auth"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/config"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/events"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/interfaces"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/ledger"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/logger"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/storage/postgres"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/transport/natsrpc"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Println("No .env file found, relying on system env vars")
	}

	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateAuth()
	}
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Server.Env)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store interfaces.LedgerStore
	switch cfg.Database.Driver {
	case "memory":
		zl.Warn("using in-memory store; data is lost on restart")
		store = memory.NewMemoryLedgerStore()
	default:
		db, err := postgres.Open(ctx, cfg.Database.DSN(), zl)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		store = postgres.NewPostgresLedgerStore(db)
	}

	var sessions auth.SessionStore = auth.NewMemorySessions()
	if cfg.Redis.Addr != "" {
		client, err := auth.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer client.Close()
		sessions = auth.NewRedisSessions(client)
		zl.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	var publisher interfaces.EventPublisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		zl.Info("publishing statement events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer publisher.Close()

	ledgerService := ledger.New(store)
	issuer := auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.TTL)
	accounts := account.New(store, issuer, sessions)
	notifier := events.NewNotifier(publisher, zl)
	authn := auth.NewAuthenticator(issuer, sessions)

	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("fin-api"))
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer nc.Drain()

		responder := natsrpc.NewBalanceResponder(ledgerService, authn, zl)
		if _, err := responder.Subscribe(nc, cfg.NATS.Subject); err != nil {
			return fmt.Errorf("subscribe %s: %w", cfg.NATS.Subject, err)
		}
		zl.Info("answering balance requests", zap.String("subject", cfg.NATS.Subject))
	}

	handler := api.NewHandler(ledgerService, accounts, notifier, zl, cfg.Server.Env)
	router := api.NewRouter(handler, auth.NewMiddleware(authn, zl), zl)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		zl.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

