// main wires high-level dependencies, exposes the HTTP router, and runs the
// background sweepers. Business logic lives in the internal services packages.
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
	"golang.org/x/sync/errgroup"

	"realname/internal/authentication"
	authhandler "realname/internal/authentication/handler"
	"realname/internal/batch"
	batchhandler "realname/internal/batch/handler"
	batchmetrics "realname/internal/batch/metrics"
	"realname/internal/platform/config"
	"realname/internal/platform/httpserver"
	"realname/internal/platform/logger"
	"realname/internal/platform/postgres"
	platformredis "realname/internal/platform/redis"
	"realname/internal/provider"
	providerhandler "realname/internal/provider/handler"
	providermetrics "realname/internal/provider/metrics"
	"realname/internal/ratelimit"
	httptransport "realname/internal/transport/http"
	auditmemory "realname/pkg/platform/audit/store/memory"
	auditpublisher "realname/pkg/platform/audit/publisher"
)

const sweepInterval = time.Minute

func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Rate limit counters: Redis when configured, in-process otherwise.
	var counters ratelimit.CounterStore = ratelimit.NewInMemoryCounterStore()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		counters = ratelimit.NewRedisCounterStore(redisClient.Client)
		defer redisClient.Close()
		log.Info("rate limit counters backed by redis")
	}

	// Batch stores: Postgres when configured, in-process otherwise.
	var (
		batchStore  batch.BatchStore  = batch.NewInMemoryBatchStore()
		recordStore batch.RecordStore = batch.NewInMemoryRecordStore()
	)
	pool, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		batchStore = batch.NewPostgresBatchStore(pool)
		recordStore = batch.NewPostgresRecordStore(pool)
		defer pool.Close()
		log.Info("batch stores backed by postgres")
	}

	auditPub := auditpublisher.NewPublisher(auditmemory.NewInMemoryStore(),
		auditpublisher.WithAsyncBuffer(256),
		auditpublisher.WithLogger(log),
	)
	defer auditPub.Close()

	limiter := ratelimit.New(counters, ratelimit.WithLogger(log))

	directory := provider.NewDirectory(provider.NewInMemoryStore(),
		provider.WithLogger(log),
		provider.WithAuditPublisher(auditPub),
	)
	invoker := provider.NewInvoker(provider.NewSignerRegistry(),
		provider.WithInvokerLogger(log),
		provider.WithMetrics(providermetrics.New()),
	)

	authStore := authentication.NewInMemoryStore()
	authService := authentication.NewService(authStore, authStore, limiter, directory, invoker,
		authentication.WithLogger(log),
		authentication.WithAuditPublisher(auditPub),
	)

	batchService := batch.NewService(batchStore, recordStore, authService,
		batch.WithLogger(log),
		batch.WithAuditPublisher(auditPub),
		batch.WithMetrics(batchmetrics.New()),
		batch.WithMaxUploadBytes(cfg.MaxUploadBytes),
	)

	health := map[string]httptransport.HealthCheck{}
	if redisClient != nil {
		health["redis"] = redisClient.Health
	}
	if pool != nil {
		health["postgres"] = pool.Ping
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger: log,
		Handlers: []httptransport.Registrar{
			batchhandler.New(batchService, log, cfg.MaxUploadBytes),
			authhandler.New(authService, log),
			providerhandler.New(directory, log),
		},
		HealthChecks: health,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting realname service", "addr", cfg.Addr)
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

	// Periodic sweepers: stuck batches and overdue authentications.
	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if swept, err := batchService.SweepStuck(gctx, cfg.StuckThreshold); err != nil {
					log.Warn("stuck batch sweep failed", "error", err)
				} else if swept > 0 {
					log.Info("swept stuck batches", "count", swept)
				}
				if expired, err := authService.ExpireOverdue(gctx); err != nil {
					log.Warn("authentication expiry sweep failed", "error", err)
				} else if expired > 0 {
					log.Info("expired overdue authentications", "count", expired)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		log.Error("service terminated", "error", err)
		os.Exit(1)
	}
	log.Info("service stopped")
}
