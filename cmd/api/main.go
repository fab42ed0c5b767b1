package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cimillas/ticket-ledger/internal/app"
	"github.com/cimillas/ticket-ledger/internal/clock"
	"github.com/cimillas/ticket-ledger/internal/config"
	"github.com/cimillas/ticket-ledger/internal/notify"
	"github.com/cimillas/ticket-ledger/internal/payment"
	"github.com/cimillas/ticket-ledger/internal/storage/postgres"
	transporthttp "github.com/cimillas/ticket-ledger/internal/transport/http"
	"github.com/cimillas/ticket-ledger/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.Default()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	var relay app.PaymentRelay
	if cfg.PaymentRelayURL != "" {
		logger.Printf("payment relay: %s", cfg.PaymentRelayURL)
		relay = payment.NewHTTPRelay(cfg.PaymentRelayURL, cfg.PaymentRelayToken)
	} else {
		logger.Printf("WARN: PAYMENT_RELAY_URL not set, approving all transfers")
		relay = payment.NewStaticRelay()
	}

	pubsub := notify.NewGoChannel(watermill.NewStdLogger(false, false))
	defer func() {
		_ = pubsub.Close()
	}()

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	if err := notify.RunLogConsumer(consumerCtx, pubsub, logger); err != nil {
		log.Fatalf("start event consumer: %v", err)
	}

	svc := app.NewTicketingService(
		postgres.NewEventRegistry(pool),
		postgres.NewTicketRegistry(pool),
		relay,
		notify.NewPublisher(pubsub),
		clock.NewSystem(),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/events", transporthttp.HandleEvents(svc))
	mux.Handle("/events/", transporthttp.HandleEventSubtree(svc))
	mux.Handle("/tickets/", transporthttp.HandleTicketSubtree(svc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(
		transporthttp.CORS(cfg.CORSOrigins,
			transporthttp.Authenticate([]byte(cfg.AuthSecret), mux)),
		logger,
	)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	log.Printf("api listening on :%s", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}
