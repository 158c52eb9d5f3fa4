package main

import (
	"context"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"storefront-sync/internal/catalog"
	"storefront-sync/internal/config"
	kafkax "storefront-sync/internal/kafka"
	"storefront-sync/internal/linkcheck"
	"storefront-sync/internal/orders"
	"storefront-sync/internal/postgres"
	"storefront-sync/internal/redisx"
	"storefront-sync/internal/supplier"
)

// syncd is the in-process replacement for external cron: it drives catalog
// syncs, pending-order processing, and link checks on their own intervals.
func main() {
	_ = godotenv.Load()
	zerolog.TimeFieldFormat = time.RFC3339

	cfg := config.Load()
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producers outlive the signal context so events from a run that is
	// still finishing at shutdown are flushed, not dropped.
	syncProd := kafkax.NewProducer(cfg.KafkaBrokers, catalog.TopicSyncCompleted, 256)
	syncProd.Start(context.Background())
	orderProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderEvents, 1024)
	orderProd.Start(context.Background())

	backoff := supplier.Backoff{
		Base:        cfg.BackoffBase,
		Cap:         cfg.BackoffCap,
		MaxAttempts: cfg.BackoffAttempts,
	}
	orderStore := &orders.PgStore{DB: db}

	manager := &catalog.Manager{
		Suppliers:        &catalog.PgSupplierStore{DB: db},
		Products:         &catalog.PgProductStore{DB: db},
		Runs:             &catalog.PgRunStore{DB: db},
		Orders:           orderStore,
		Adapters:         supplier.NewRegistry(cfg.AdapterTimeout),
		Locks:            &redisx.SupplierLocker{RDB: rdb, TTL: cfg.SyncLockTTL},
		Backoff:          backoff,
		Workers:          cfg.SyncWorkers,
		AuthFailureLimit: cfg.AuthFailureLimit,
		Pushes:           &redisx.PushCache{RDB: rdb},
		Events:           syncProd,
		Service:          cfg.ServiceName + "-syncd",
	}
	processor := &orders.Processor{
		Store:       orderStore,
		Creator:     manager,
		Adapters:    manager,
		Backoff:     backoff,
		MaxAttempts: cfg.MaxOrderAttempts,
		Policy:      orders.ReviewFlag,
		Events:      orderProd,
		Service:     cfg.ServiceName + "-syncd",
	}
	checker := &linkcheck.Checker{
		URLs:    cfg.LinkCheckURLs,
		Client:  &http.Client{Timeout: cfg.LinkCheckTimeout},
		Workers: cfg.LinkCheckWorkers,
		Store:   &linkcheck.PgReportStore{DB: db},
		RDB:     rdb,
	}

	var wg sync.WaitGroup
	loop := func(interval time.Duration, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			every(ctx, interval, fn)
		}()
	}

	loop(cfg.SyncInterval, func(ctx context.Context) {
		if _, err := manager.SyncAll(ctx, catalog.TriggerCron); err != nil {
			log.Error().Err(err).Msg("catalog sync run failed")
		}
	})
	loop(cfg.OrdersInterval, func(ctx context.Context) {
		if _, err := processor.ProcessPending(ctx); err != nil {
			log.Error().Err(err).Msg("order processing run failed")
		}
		if err := processor.TrackSupplierOrders(ctx); err != nil {
			log.Error().Err(err).Msg("supplier order tracking failed")
		}
	})
	if len(cfg.LinkCheckURLs) > 0 {
		loop(cfg.LinkCheckInterval, func(ctx context.Context) {
			if _, err := checker.Run(ctx); err != nil {
				log.Error().Err(err).Msg("link check run failed")
			}
		})
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")
	wg.Wait()
	syncProd.Close()
	orderProd.Close()
	syncProd.WaitClosed()
	orderProd.WaitClosed()
}

// every runs fn once immediately, then on each tick until ctx is cancelled.
func every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	fn(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn(ctx)
		}
	}
}
