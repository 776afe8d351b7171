// Command server runs the seller-side protocol gateway. main wires
// stores, the trail pipeline, the callback dispatcher and the HTTP
// router; business logic lives in the internal packages.
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

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"sellergate/internal/binder"
	bpphandler "sellergate/internal/bpp/handler"
	bppmetrics "sellergate/internal/bpp/metrics"
	"sellergate/internal/bpp/service"
	"sellergate/internal/callback"
	cbmetrics "sellergate/internal/callback/metrics"
	"sellergate/internal/catalog"
	"sellergate/internal/debug"
	"sellergate/internal/guard"
	"sellergate/internal/platform/config"
	"sellergate/internal/platform/httpserver"
	"sellergate/internal/platform/logger"
	platformmetrics "sellergate/internal/platform/metrics"
	platformredis "sellergate/internal/platform/redis"
	"sellergate/internal/records"
	"sellergate/internal/trail"
	trailkafka "sellergate/internal/trail/kafka"
	trailmetrics "sellergate/internal/trail/metrics"
	httptransport "sellergate/internal/transport/http"
	"sellergate/internal/txstate"
	"sellergate/pkg/platform/retry"
)

// trailInboxSize bounds the queue between the dispatcher and the trail
// worker; overflow drops outgoing trail rows rather than blocking.
const trailInboxSize = 256

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var checks []httptransport.HealthCheck

	// Stores: postgres when configured, in-memory otherwise.
	var (
		trailStore  trail.Store
		recordStore records.Store
	)
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		trailStore = trail.NewPostgres(db)
		recordStore = records.NewPostgres(db)
		checks = append(checks, httptransport.HealthCheck{Name: "postgres", Check: db.PingContext})
		log.Info("using postgres stores")
	} else {
		trailStore = trail.NewMemoryStore()
		recordStore = records.NewMemoryStore()
		log.Info("using in-memory stores")
	}

	var states txstate.Store = txstate.NewMemoryStore()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		states = txstate.NewRedis(redisClient.Client)
		checks = append(checks, httptransport.HealthCheck{Name: "redis", Check: redisClient.Health})
		log.Info("using redis transaction state store")
	}

	// Trail pipeline: recorder plus the worker draining dispatcher rows.
	recorderOpts := []trail.RecorderOption{trail.WithMetrics(trailmetrics.New())}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := trailkafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer publisher.Close()
		recorderOpts = append(recorderOpts, trail.WithSink("kafka", publisher))
		log.Info("mirroring trail to kafka", "topic", cfg.Kafka.Topic)
	}
	recorder := trail.NewRecorder(trailStore, log, recorderOpts...)
	trailInbox := make(chan trail.Record, trailInboxSize)
	worker := trail.NewWorker(recorder, trailInbox)

	// Callback dispatcher, optionally signing outgoing requests.
	dispatcherOpts := []callback.Option{
		callback.WithTimeout(cfg.Callback.Timeout),
		callback.WithMetrics(cbmetrics.New()),
	}
	if cfg.Callback.SigningSeed != "" {
		signer, err := callback.NewEd25519Signer(cfg.BppID, cfg.Callback.SigningKeyID, cfg.Callback.SigningSeed)
		if err != nil {
			return err
		}
		dispatcherOpts = append(dispatcherOpts, callback.WithSigner(signer))
		log.Info("callback signing enabled", "key_id", cfg.Callback.SigningKeyID)
	}
	dispatcher := callback.NewDispatcher(cfg.BppID, cfg.BppURI, trailInbox, log, dispatcherOpts...)

	pipelineMetrics := bppmetrics.New()
	svc := service.New(
		guard.New(trailStore, log, pipelineMetrics),
		binder.New(recordStore, log),
		catalog.NewMemoryProvider(),
		recordStore,
		recorder,
		states,
		dispatcher,
		log,
		service.WithPersistPolicy(retry.Policy{
			Attempts: cfg.PersistAttempts,
			Backoff:  cfg.PersistBackoff,
		}),
		service.WithMetrics(pipelineMetrics),
	)

	router := httptransport.NewRouter(
		bpphandler.New(svc, log),
		debug.New(trailStore, states, log),
		log,
		platformmetrics.New(),
		checks,
	)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting sellergate", "addr", cfg.Addr, "bpp_id", cfg.BppID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
