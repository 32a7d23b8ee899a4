package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sweep "github.com/cassiomorais/checkout/internal/application/dlq"
	"github.com/cassiomorais/checkout/internal/application/reconcile"
	"github.com/cassiomorais/checkout/internal/bootstrap"
	"github.com/cassiomorais/checkout/internal/gateway"
	infraRedis "github.com/cassiomorais/checkout/internal/infrastructure/redis"
	"github.com/cassiomorais/checkout/internal/monitoring"
	"github.com/cassiomorais/checkout/internal/notification"
	"github.com/cassiomorais/checkout/internal/repository/postgres"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "checkout-worker", "checkout_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	cfg := app.Config

	// --- Repositories ---
	orderRepo := postgres.NewOrderRepository(app.Pool)
	productRepo := postgres.NewProductRepository(app.Pool)
	dlqRepo := postgres.NewFailedPaymentRepository(app.Pool)

	// --- Settlement wiring (shared with the API's webhook path) ---
	statusClient := gateway.NewClient(cfg.Gateway.VerificationURL, cfg.Gateway.ProductCode, cfg.Gateway.StatusCheckTimeout, app.Logger)
	sink := monitoring.NewZerologSink(app.Logger)
	notifier := notification.NewStreamNotifier(app.Redis)
	settler := reconcile.NewInventorySettler(productRepo, sink, app.Metrics, app.Logger)
	settlement := reconcile.NewSettlement(orderRepo, settler, notifier, sink, app.Metrics, app.Logger)

	// Cross-instance lease so concurrent workers don't sweep the same batch.
	lease := infraRedis.NewSweepLock(app.Redis, "dlq-sweep", cfg.DLQ.LockTTL)

	sweeper := sweep.NewSweeper(
		dlqRepo, orderRepo, statusClient, settlement, sink, app.Metrics,
		nil, lease, cfg.DLQ.BatchSize, cfg.DLQ.BackoffTiers, app.Logger,
	)

	app.Logger.Info().
		Dur("sweep_interval", cfg.DLQ.SweepInterval).
		Int("batch_size", cfg.DLQ.BatchSize).
		Str("instance", cfg.InstanceID).
		Msg("Worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sweeper.Run(gCtx, cfg.DLQ.SweepInterval)
	})

	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}
