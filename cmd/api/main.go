package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cassiomorais/checkout/internal/application/checkout"
	sweep "github.com/cassiomorais/checkout/internal/application/dlq"
	"github.com/cassiomorais/checkout/internal/application/reconcile"
	"github.com/cassiomorais/checkout/internal/bootstrap"
	"github.com/cassiomorais/checkout/internal/controller"
	"github.com/cassiomorais/checkout/internal/gateway"
	"github.com/cassiomorais/checkout/internal/monitoring"
	"github.com/cassiomorais/checkout/internal/notification"
	"github.com/cassiomorais/checkout/internal/repository/postgres"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "checkout-api", "checkout")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	cfg := app.Config

	// --- Repositories ---
	orderRepo := postgres.NewOrderRepository(app.Pool)
	productRepo := postgres.NewProductRepository(app.Pool)
	shippingRepo := postgres.NewShippingRepository(app.Pool)
	dlqRepo := postgres.NewFailedPaymentRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Gateway and monitoring ---
	signer := gateway.NewSigner(cfg.Gateway.SecretKey, cfg.Gateway.ProductCode)
	formBuilder := gateway.NewFormBuilder(signer, cfg.Gateway.FormAction, cfg.Gateway.SuccessURL, cfg.Gateway.FailureURL)
	statusClient := gateway.NewClient(cfg.Gateway.VerificationURL, cfg.Gateway.ProductCode, cfg.Gateway.StatusCheckTimeout, app.Logger)
	sink := monitoring.NewZerologSink(app.Logger)
	notifier := notification.NewStreamNotifier(app.Redis)

	// --- Use cases ---
	validator := checkout.NewOrderValidator(productRepo, shippingRepo)
	createOrderUC := checkout.NewCreateOrderUseCase(validator, orderRepo, formBuilder, app.Logger)

	guard, err := reconcile.NewGuard(
		cfg.Gateway.StrictMode,
		cfg.Gateway.AllowAllOrigins,
		cfg.Gateway.AllowedOrigins,
		cfg.Gateway.DevelopmentIPs,
		cfg.Gateway.ReplayWindow,
		app.Logger,
	)
	if err != nil {
		app.Logger.Fatal().Err(err).Msg("Failed to build webhook guard")
	}

	settler := reconcile.NewInventorySettler(productRepo, sink, app.Metrics, app.Logger)
	settlement := reconcile.NewSettlement(orderRepo, settler, notifier, sink, app.Metrics, app.Logger)
	deferrer := reconcile.NewDeferrer(dlqRepo, sink, app.Metrics, cfg.DLQ.MaxRetries, cfg.DLQ.BackoffTiers, app.Logger)
	reconciler := reconcile.NewReconciler(guard, signer, orderRepo, settlement, deferrer, sink, app.Metrics, cfg.Gateway.StrictMode, app.Logger)
	statusCheckUC := reconcile.NewStatusCheckUseCase(orderRepo, dlqRepo, statusClient, settlement, deferrer, txManager, app.Logger)

	// The API process only serves the admin DLQ endpoints; the periodic
	// sweep loop runs in the worker.
	sweeper := sweep.NewSweeper(
		dlqRepo, orderRepo, statusClient, settlement, sink, app.Metrics,
		nil, nil, cfg.DLQ.BatchSize, cfg.DLQ.BackoffTiers, app.Logger,
	)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:             app.Pool,
		RedisClient:      app.Redis,
		OrderRepo:        orderRepo,
		CreateOrder:      createOrderUC,
		Reconciler:       reconciler,
		StatusCheck:      statusCheckUC,
		Sweeper:          sweeper,
		Metrics:          app.Metrics,
		CORSConfig:       cfg.Server.CORS,
		WebhookRateLimit: cfg.Gateway.WebhookRateLimit,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
