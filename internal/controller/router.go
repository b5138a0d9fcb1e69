package controller

import (
	"net/http"
	"time"

	invoiceApp "github.com/cassiomorais/billing/internal/application/invoice"
	"github.com/cassiomorais/billing/internal/infrastructure/config"
	"github.com/cassiomorais/billing/internal/infrastructure/observability"
	customMW "github.com/cassiomorais/billing/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	DB     Pinger
	Redis  Pinger
	Events EventReader

	CreateInvoice  *invoiceApp.CreateInvoiceUseCase
	GetInvoice     *invoiceApp.GetInvoiceUseCase
	ListInvoices   *invoiceApp.ListInvoicesUseCase
	CreateCustomer *invoiceApp.CreateCustomerUseCase
	GetCustomer    *invoiceApp.GetCustomerUseCase
	ListCustomers  *invoiceApp.ListCustomersUseCase

	Logger     zerolog.Logger
	Metrics    *observability.Metrics
	Gatherer   prometheus.Gatherer
	CORSConfig config.CORSConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(customMW.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.DB, deps.Redis)
	invoiceH := NewInvoiceController(deps.CreateInvoice, deps.GetInvoice, deps.ListInvoices)
	customerH := NewCustomerController(deps.CreateCustomer, deps.GetCustomer, deps.ListCustomers)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", metricsHandler(deps.Gatherer))

	r.Route("/rest/v1", func(r chi.Router) {
		r.Get("/invoices", invoiceH.List)
		r.Post("/invoices", invoiceH.Create)
		r.Get("/invoices/{id}", invoiceH.Get)

		r.Get("/customers", customerH.List)
		r.Post("/customers", customerH.Create)
		r.Get("/customers/{id}", customerH.Get)

		if deps.Events != nil {
			r.Get("/billing/events", NewEventsController(deps.Events).Recent)
		}
	})

	return r
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
