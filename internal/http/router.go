package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/botstore/internal/catalog"
	"github.com/fjod/botstore/internal/metrics"
	"github.com/fjod/botstore/internal/publisher"
	"github.com/fjod/botstore/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

type Deps struct {
	Catalog   catalog.Catalog
	Carts     storage.Storage
	Invoices  InvoiceCreator
	Publisher publisher.Publisher
	IPNSecret string

	Metrics  *metrics.ServerMetrics
	Gatherer prometheus.Gatherer
	Limiter  *ClientLimiter
	Log      *slog.Logger

	CartTTL            time.Duration
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.MaxRequestBodySize <= 0 {
		d.MaxRequestBodySize = 1 << 20
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}
	if d.Publisher == nil {
		d.Publisher = publisher.NewLogPublisher(d.Log)
	}

	productHandler := NewProductHandler(d.Catalog, d.RequestTimeout, d.Log)
	invoiceHandler := NewInvoiceHandler(d.Invoices, d.Metrics, d.RequestTimeout, d.Log, d.MaxRequestBodySize)
	cartHandler := NewCartHandler(d.Catalog, d.Carts, invoiceHandler, d.RequestTimeout, d.Log)
	webhookHandler := NewWebhookHandler(d.IPNSecret, d.Publisher, d.Log, d.MaxRequestBodySize)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestIDHeader)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Log))
	r.Use(middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(middleware.Timeout(d.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.With(RateLimit(d.Limiter)).Post("/create-now-invoice", invoiceHandler.Create)
		r.Post("/nowpayments-webhook", webhookHandler.Handle)

		r.Route("/v1", func(r chi.Router) {
			r.Route("/products", func(r chi.Router) {
				r.Get("/", productHandler.List)
				r.Get("/{product_id}", productHandler.Get)
			})
			r.Route("/cart", func(r chi.Router) {
				r.Use(Session(d.CartTTL))
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Get("/quote", cartHandler.Quote)
				r.With(RateLimit(d.Limiter)).Post("/checkout", cartHandler.Checkout)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
				r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			})
		})
	})

	return r
}
