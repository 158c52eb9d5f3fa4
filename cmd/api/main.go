package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"storefront-sync/internal/catalog"
	"storefront-sync/internal/config"
	"storefront-sync/internal/httpx"
	kafkax "storefront-sync/internal/kafka"
	"storefront-sync/internal/linkcheck"
	"storefront-sync/internal/orders"
	"storefront-sync/internal/postgres"
	"storefront-sync/internal/redisx"
	"storefront-sync/internal/supplier"
)

func main() {
	_ = godotenv.Load()
	zerolog.TimeFieldFormat = time.RFC3339

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers
	syncProd := kafkax.NewProducer(cfg.KafkaBrokers, catalog.TopicSyncCompleted, 256)
	syncProd.Start(ctx)
	orderProd := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderEvents, 1024)
	orderProd.Start(ctx)

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
		Service:          cfg.ServiceName,
	}
	processor := &orders.Processor{
		Store:       orderStore,
		Creator:     manager,
		Adapters:    manager,
		Backoff:     backoff,
		MaxAttempts: cfg.MaxOrderAttempts,
		Policy:      orders.ReviewFlag,
		Events:      orderProd,
		Service:     cfg.ServiceName,
	}
	checker := &linkcheck.Checker{
		URLs:    cfg.LinkCheckURLs,
		Client:  &http.Client{Timeout: cfg.LinkCheckTimeout},
		Workers: cfg.LinkCheckWorkers,
		Store:   &linkcheck.PgReportStore{DB: db},
		RDB:     rdb,
	}

	router := httpx.NewRouter()
	(&httpx.SyncHandler{Manager: manager, Runs: &catalog.PgRunStore{DB: db}}).Register(router)
	(&httpx.OrdersHandler{Runner: processor, Creator: manager, Store: orderStore}).Register(router)
	(&httpx.MonitorHandler{Checker: checker}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	syncProd.Close()
	orderProd.Close()
	cancel()
	syncProd.WaitClosed()
	orderProd.WaitClosed()
}
