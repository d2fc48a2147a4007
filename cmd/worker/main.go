package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rezkam/jobmongo/internal/application/worker"
	"github.com/rezkam/jobmongo/internal/config"
	"github.com/rezkam/jobmongo/internal/domain"
	"github.com/rezkam/jobmongo/internal/mongostore"
	"github.com/rezkam/jobmongo/pkg/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerCfg, err := config.LoadWorkerConfig()
	if err != nil {
		slog.Error("failed to load worker config", "error", err)
		os.Exit(1)
	}

	obsCfg, err := config.LoadObservabilityConfig()
	if err != nil {
		slog.Error("failed to load observability config", "error", err)
		os.Exit(1)
	}

	_, logger, err := observability.InitLogger(ctx, obsCfg.OTelServiceName, obsCfg.OTelEnabled)
	if err != nil {
		slog.Error("failed to init logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	tp, err := observability.InitTracerProvider(ctx, obsCfg.OTelServiceName, obsCfg.OTelEnabled)
	if err != nil {
		slog.ErrorContext(ctx, "failed to init tracer provider", "error", err)
		os.Exit(1)
	}
	defer tp.Shutdown(context.Background())

	dc, err := mongostore.NewDbContext(ctx, mongostore.Config{
		URI:      workerCfg.Storage.MongoURI,
		Database: "jobmongo",
		Prefix:   workerCfg.Storage.Prefix,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to mongo", "error", err)
		os.Exit(1)
	}
	defer dc.Disconnect(context.Background())

	if err := dc.Init(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to initialize schema", "error", err)
		os.Exit(1)
	}

	jobQueue := mongostore.NewJobQueue(dc, workerCfg.Storage.QueuePollInterval, workerCfg.Storage.InvisibilityTimeout)
	defer jobQueue.Dispose()

	providers := mongostore.NewQueueProviders()
	providers.RegisterDefault(mongostore.NewDefaultQueueProvider(jobQueue))

	conn := mongostore.NewConnection(dc, providers)
	lock := mongostore.NewDistributedLock(dc, workerCfg.Storage.DistributedLockLifetime)
	aggregator := mongostore.NewCountersAggregator(dc)

	serverID := workerCfg.Storage.ClientID
	poolConfig := worker.DefaultConfig(workerCfg.Queues)

	if err := conn.AnnounceServer(ctx, serverID, poolConfig.Concurrency, workerCfg.Queues); err != nil {
		slog.ErrorContext(ctx, "failed to announce server", "error", err)
		os.Exit(1)
	}

	pool := worker.New(conn, demoHandler, poolConfig)

	go runHeartbeat(ctx, conn, serverID, workerCfg.ServerHeartbeat)
	go runAggregation(ctx, lock, aggregator, workerCfg.AggregationPeriod)

	slog.InfoContext(ctx, "worker demo started",
		slog.String("server_id", serverID),
		slog.Any("queues", workerCfg.Queues),
	)

	if err := pool.Start(ctx); err != nil && err != context.Canceled {
		slog.ErrorContext(ctx, "worker pool exited with error", "error", err)
	}
	slog.InfoContext(ctx, "worker demo stopped")
}

// demoHandler is a placeholder job processor for this demo binary: a real
// host would dispatch on data.Job.InvocationData to invoke the handler a
// caller registered for that job type.
func demoHandler(ctx context.Context, data domain.JobData) error {
	slog.InfoContext(ctx, "processing job", slog.String("job_id", data.Job.ID), slog.String("invocation", data.Job.InvocationData))
	return nil
}

// runHeartbeat refreshes this server's heartbeat row on a fixed interval,
// keeping it out of RemoveTimedOutServers' reach for as long as this
// process is alive.
func runHeartbeat(ctx context.Context, conn *mongostore.Connection, serverID string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.Heartbeat(ctx, serverID); err != nil {
				slog.ErrorContext(ctx, "heartbeat failed", "error", err)
			}
		}
	}
}

// runAggregation holds the counter-aggregation lock for as long as this
// process runs, so multiple worker instances don't race to roll up the
// same counter rows. The acquire timeout carries a short random jitter; an
// instance that does not get the lock within it logs that and runs no
// aggregation, without trying again.
func runAggregation(ctx context.Context, lock *mongostore.DistributedLock, aggregator *mongostore.CountersAggregator, period time.Duration) {
	timeout := 5*time.Second + time.Duration(rand.Intn(2000))*time.Millisecond
	lockCtx, handle, err := lock.Acquire(ctx, "counters-aggregator", timeout)
	if err != nil {
		slog.InfoContext(ctx, "counter aggregation not acquired on this instance", "error", err)
		return
	}
	defer handle.Release(context.Background())

	if err := aggregator.Run(lockCtx, 1000, period, period/10); err != nil && err != domain.ErrCanceled {
		slog.ErrorContext(ctx, "counter aggregation stopped", "error", err)
	}
}
