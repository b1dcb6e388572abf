package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-depot-engine/internal/config"
	"github.com/ariefcatur/go-depot-engine/internal/dispatch"
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
	service := cfg.ServiceName + "-dispatcher"

	log, err := logx.New(cfg.LogLevel, service)
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

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prodCtx, cancelProducer := context.WithCancel(context.Background())
	defer cancelProducer()
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicDeliveryJobUpdated, 1024, log)
	prod.Start(prodCtx)

	tracker := presence.NewTracker(&redisx.PresenceStore{Redis: rdb}, presence.WithTimeout(cfg.PresenceTimeout))
	dispatcher := dispatch.New(&postgres.JobStore{DB: db},
		dispatch.WithDeliveryStatusWriter(&postgres.LedgerRepo{DB: db}),
		dispatch.WithPresence(tracker),
		dispatch.WithPresenceGate(cfg.PresenceGate),
		dispatch.WithPublisher(&dispatch.EventPublisher{Producer: prod, ServiceName: service}),
		dispatch.WithLogger(log),
		dispatch.WithAssignTimeout(cfg.AssignTimeout),
	)

	svc := &dispatch.Service{Dispatcher: dispatcher, Redis: rdb, ServiceName: service, Log: log}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.DispatchGroup, orders.TopicOrderCompleted, cfg.DispatchWorkers, log)
	sweeper := dispatch.NewSweeper(dispatcher, cfg.SweepInterval, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("dispatch consumer started",
			zap.String("group", cfg.DispatchGroup),
			zap.String("topic", orders.TopicOrderCompleted),
			zap.Int("workers", cfg.DispatchWorkers))
		return cons.Start(gctx, svc.HandleOrderCompleted)
	})
	g.Go(func() error { return sweeper.Run(gctx) })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Error("dispatcher stopped", zap.Error(err))
	}
	log.Info("shutting down")
	prod.Close()
	prod.WaitClosed()
}
