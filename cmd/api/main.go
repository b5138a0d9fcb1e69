package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	invoiceApp "github.com/cassiomorais/billing/internal/application/invoice"
	"github.com/cassiomorais/billing/internal/bootstrap"
	"github.com/cassiomorais/billing/internal/controller"
	"github.com/cassiomorais/billing/internal/infrastructure/observability"
	"github.com/cassiomorais/billing/internal/infrastructure/postgres"
	infraRedis "github.com/cassiomorais/billing/internal/infrastructure/redis"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "billing-api", "billing")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	invoiceRepo := postgres.NewInvoiceRepository(app.Pool, app.Config.Billing.MaxRetry)
	customerRepo := postgres.NewCustomerRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	deps := controller.RouterDeps{
		DB:             app.Pool,
		CreateInvoice:  invoiceApp.NewCreateInvoiceUseCase(invoiceRepo, customerRepo, txManager),
		GetInvoice:     invoiceApp.NewGetInvoiceUseCase(invoiceRepo),
		ListInvoices:   invoiceApp.NewListInvoicesUseCase(invoiceRepo),
		CreateCustomer: invoiceApp.NewCreateCustomerUseCase(customerRepo),
		GetCustomer:    invoiceApp.NewGetCustomerUseCase(customerRepo),
		ListCustomers:  invoiceApp.NewListCustomersUseCase(customerRepo),
		Logger:         observability.ComponentLogger(app.Logger, "http"),
		Metrics:        app.Metrics,
		CORSConfig:     app.Config.Server.CORS,
	}
	if app.Redis != nil {
		deps.Redis = controller.RedisPinger(app.Redis)
		deps.Events = infraRedis.NewEventStream(app.Redis)
	}
	router := controller.NewRouter(deps)

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
