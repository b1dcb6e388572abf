package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-depot-engine/internal/checkout"
	"github.com/ariefcatur/go-depot-engine/internal/config"
	"github.com/ariefcatur/go-depot-engine/internal/dispatch"
	"github.com/ariefcatur/go-depot-engine/internal/httpx"
	kafkax "github.com/ariefcatur/go-depot-engine/internal/kafka"
	"github.com/ariefcatur/go-depot-engine/internal/logx"
	"github.com/ariefcatur/go-depot-engine/internal/orders"
	"github.com/ariefcatur/go-depot-engine/internal/postgres"
	"github.com/ariefcatur/go-depot-engine/internal/presence"
	"github.com/ariefcatur/go-depot-engine/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logx.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if cfg.Migrations {
		if err := postgres.Migrate(db); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, satu per topic
	prodCtx, cancelProducers := context.WithCancel(context.Background())
	defer cancelProducers()
	topics := kafkax.Topics{}
	for _, t := range []string{orders.TopicOrderCompleted, orders.TopicOrderCancelled, orders.TopicDeliveryJobUpdated} {
		topics[t] = kafkax.NewProducer(cfg.KafkaBrokers, t, 1024, log)
	}
	topics.Start(prodCtx)

	ledger := &postgres.LedgerRepo{DB: db}
	tracker := presence.NewTracker(&redisx.PresenceStore{Redis: rdb}, presence.WithTimeout(cfg.PresenceTimeout))

	dispatcher := dispatch.New(&postgres.JobStore{DB: db},
		dispatch.WithDeliveryStatusWriter(ledger),
		dispatch.WithPresence(tracker),
		dispatch.WithPresenceGate(cfg.PresenceGate),
		dispatch.WithPublisher(&dispatch.EventPublisher{Producer: topics[orders.TopicDeliveryJobUpdated], ServiceName: cfg.ServiceName}),
		dispatch.WithLogger(log),
		dispatch.WithAssignTimeout(cfg.AssignTimeout),
	)

	router := httpx.NewRouter(log)
	(&httpx.OrdersHandler{
		Store:        ledger,
		Orchestrator: checkout.New(checkout.WithActor(cfg.ServiceName)),
		Events:       topics,
		Service:      cfg.ServiceName,
		Log:          log,
	}).Register(router)
	(&httpx.JobsHandler{Dispatcher: dispatcher}).Register(router)
	(&httpx.DriversHandler{Tracker: tracker}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Error("api stopped", zap.Error(err))
	}

	topics.Close() // flush inbox sebelum writer ditutup
}
