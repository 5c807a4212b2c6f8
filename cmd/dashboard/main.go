package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/foodcourt/vendor-dashboard/pkg/logging"
	"github.com/foodcourt/vendor-dashboard/pkg/metrics"
	"github.com/foodcourt/vendor-dashboard/pkg/shutdown"
	"github.com/foodcourt/vendor-dashboard/pkg/tracing"

	"github.com/foodcourt/vendor-dashboard/internal/countdown"
	"github.com/foodcourt/vendor-dashboard/internal/countdown/redisstore"
	"github.com/foodcourt/vendor-dashboard/internal/order/application"
	dashhttp "github.com/foodcourt/vendor-dashboard/internal/order/infrastructure/http"
	feedkafka "github.com/foodcourt/vendor-dashboard/internal/order/infrastructure/kafka"
	orderpg "github.com/foodcourt/vendor-dashboard/internal/order/infrastructure/postgres"
)

func main() {
	cfg, err := NewConfig()
	if err != nil {
		logging.New("ERROR").Error("config", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.Init(ctx, "vendor-dashboard", cfg.OTLPEndpoint, log)
		if err != nil {
			log.Error("otel init failed", "err", err)
			os.Exit(1)
		}
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	userID, err := uuid.Parse(cfg.VendorUserID)
	if err != nil {
		log.Error("invalid VENDOR_USER_ID", "err", err)
		os.Exit(1)
	}

	// Postgres setup
	pool, err := pgxpool.New(ctx, cfg.DatabaseConnection)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := orderpg.NewRepository(log, pool)

	// Vendor resolution is fatal on failure: no vendor record means no view,
	// never an empty order list.
	vendorID, err := repo.ResolveVendor(ctx, userID)
	if err != nil {
		if errors.Is(err, application.ErrVendorNotFound) {
			log.Error("no vendor record for this user", "user_id", userID)
		} else {
			log.Error("vendor resolution failed", "err", err)
		}
		os.Exit(1)
	}
	log.Info("vendor resolved", "vendor_id", vendorID)

	// Countdown deadline persistence
	var deadlines countdown.DeadlineStore
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		defer rdb.Close()
		deadlines = redisstore.New(rdb)
	} else {
		log.Warn("no REDIS_ADDRESS set, countdowns will not survive a restart")
		deadlines = countdown.NewMemoryStore()
	}

	m := metrics.NewSyncMetrics("vendor_dashboard")

	store := application.NewStore()
	scheduler := countdown.NewScheduler(ctx, log, deadlines)
	scheduler.SetMetrics(m)
	store.Subscribe(scheduler)

	noticeLog := application.NewNoticeLog(log)

	reconciler := application.NewReconciler(log, store, repo, noticeLog, vendorID)
	reconciler.SetMetrics(m)

	controller := application.NewTransitionController(log, store, repo, reconciler, noticeLog)
	controller.SetMetrics(m)

	listener := feedkafka.NewListener(log, strings.Split(cfg.KafkaBrokers, ","),
		cfg.ChangeFeedTopic, cfg.ChangeFeedGroup, reconciler)
	listener.SetMetrics(m)

	// Initial load. A failure here is recoverable: the dashboard starts
	// empty with a visible notice and the vendor can refresh.
	if err := reconciler.Reconcile(ctx); err != nil {
		log.Warn("initial order load failed", "err", err)
	}

	handler := dashhttp.NewHandler(log, store, controller, reconciler, scheduler, noticeLog)

	r := chi.NewRouter()
	r.Mount("/api", handler.Routes())
	r.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Run reconciler loop
	go func() {
		if err := reconciler.Run(ctx); err != nil {
			log.Error("reconciler stopped with error", "err", err)
		}
	}()

	// Run change feed
	go func() {
		if err := listener.Run(ctx); err != nil {
			log.Error("change feed stopped with error", "err", err)
			cancel()
		}
	}()

	// Run HTTP
	go func() {
		log.Info("http listening", "addr", cfg.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	scheduler.StopAll()
	log.Info("vendor-dashboard shutdown complete")
}
