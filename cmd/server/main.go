package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	directorymemory "heirloom/internal/directory/memory"
	directorypostgres "heirloom/internal/directory/postgres"
	"heirloom/internal/liveness/handler"
	livenessmetrics "heirloom/internal/liveness/metrics"
	"heirloom/internal/liveness/ports"
	"heirloom/internal/liveness/service"
	storememory "heirloom/internal/liveness/store/memory"
	storepostgres "heirloom/internal/liveness/store/postgres"
	"heirloom/internal/liveness/sweep"
	"heirloom/internal/notify"
	"heirloom/internal/platform/config"
	"heirloom/internal/platform/httpserver"
	"heirloom/internal/platform/kafka"
	"heirloom/internal/platform/logger"
	platformmetrics "heirloom/internal/platform/metrics"
	"heirloom/internal/platform/middleware"
	platformredis "heirloom/internal/platform/redis"
	"heirloom/internal/scheduler"
	"heirloom/pkg/platform/audit"
	auditmemory "heirloom/pkg/platform/audit/store/memory"
	auditpostgres "heirloom/pkg/platform/audit/store/postgres"
	"heirloom/pkg/platform/audit/publisher"
)

// main wires the liveness engine: storage, directories, transports, the
// sweep scheduler, and the HTTP surface. Business logic lives in the
// internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	// Storage: postgres when configured, process memory otherwise.
	var (
		db         *sql.DB
		store      ports.Store
		contacts   ports.ContactDirectory
		assets     ports.AssetDirectory
		auditStore audit.Store
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			return err
		}
		store = storepostgres.New(db)
		directory := directorypostgres.New(db)
		contacts, assets = directory, directory
		auditStore = auditpostgres.New(db)
		log.Info("using postgres storage")
	} else {
		memStore := storememory.New()
		directory := directorymemory.New()
		store, contacts, assets = memStore, directory, directory
		auditStore = auditmemory.NewInMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	auditPub := publisher.NewPublisher(auditStore, publisher.WithAsyncBuffer(256))
	defer auditPub.Close()

	// Redis backs the reminder dedup keys and the sweep lease; absent Redis
	// both fall back to process-local implementations.
	var (
		dedup     ports.ReminderDedup = sweep.NewMemoryDedup()
		sweepLock ports.SweepLock
	)
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		dedup = sweep.NewRedisDedup(redisClient.Client)
		sweepLock = scheduler.NewRedisSweepLock(redisClient.Client)
		log.Info("redis connected", "url", cfg.Redis.URL)
	}

	// Kafka carries outbound messages and release events when configured.
	var dispatcher ports.Dispatcher = notify.NewLogDispatcher(log)
	kafkaPub, err := kafka.NewPublisher(cfg.Kafka)
	if err != nil {
		return err
	}
	if kafkaPub != nil {
		defer kafkaPub.Close()
		dispatcher = notify.NewKafkaDispatcher(kafkaPub, log)
		log.Info("kafka connected", "brokers", cfg.Kafka.Brokers)
	}

	renderer := notify.NewPlainRenderer()

	svc, err := service.New(store, service.Defaults{
		GracePeriodDays: cfg.Liveness.GracePeriodDays,
		MaxReminders:    cfg.Liveness.MaxReminders,
		CheckinInterval: cfg.Liveness.CheckinInterval,
	}, service.WithLogger(log), service.WithAuditPublisher(auditPub))
	if err != nil {
		return err
	}

	triggerOpts := []service.TriggerOption{
		service.TriggerWithLogger(log),
		service.TriggerWithAuditPublisher(auditPub),
	}
	if kafkaPub != nil {
		triggerOpts = append(triggerOpts, service.TriggerWithReleasePublisher(kafkaPub))
	}
	trigger, err := service.NewTrigger(store, contacts, assets, renderer, dispatcher, triggerOpts...)
	if err != nil {
		return err
	}

	sweepOpts := []sweep.Option{
		sweep.WithLogger(log),
		sweep.WithAuditPublisher(auditPub),
		sweep.WithWorkers(cfg.Liveness.SweepWorkers),
		sweep.WithDedupTTL(cfg.Liveness.DedupTTL),
		sweep.WithUpcomingOffsets(cfg.Liveness.UpcomingOffsets),
		sweep.WithMetrics(livenessmetrics.New()),
	}
	if sweepLock != nil {
		sweepOpts = append(sweepOpts, sweep.WithSweepLock(sweepLock, cfg.Liveness.SweepLockDuration))
	}
	sweeper, err := sweep.New(store, contacts, trigger, renderer, dispatcher, dedup, sweepOpts...)
	if err != nil {
		return err
	}

	sched := scheduler.New(cfg.Liveness.SweepCronSpec, 15*time.Minute, log,
		func(ctx context.Context, now time.Time) error {
			_, err := sweeper.Run(ctx, now)
			return err
		})
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	router := chi.NewRouter()
	router.Use(middleware.Metrics(platformmetrics.New().HTTPRequestDuration))
	handler.New(svc, sweeper, log).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting heirloom", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
