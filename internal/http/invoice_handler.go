package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/botstore/internal/checkout"
	"github.com/fjod/botstore/internal/invoice"
	"github.com/fjod/botstore/internal/metrics"
	"github.com/fjod/botstore/internal/nowpayments"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// InvoiceCreator creates provider invoices.
type InvoiceCreator interface {
	Configured() bool
	Create(ctx context.Context, description string, amount decimal.Decimal) (json.RawMessage, error)
}

type InvoiceHandler struct {
	invoices InvoiceCreator
	metrics  *metrics.ServerMetrics
	timeout  time.Duration
	log      *slog.Logger
	maxBody  int64
	group    singleflight.Group
}

func NewInvoiceHandler(invoices InvoiceCreator, m *metrics.ServerMetrics, timeout time.Duration, log *slog.Logger, maxBody int64) *InvoiceHandler {
	return &InvoiceHandler{
		invoices: invoices,
		metrics:  m,
		timeout:  timeout,
		log:      log,
		maxBody:  maxBody,
	}
}

type CreateInvoiceRequestDTO struct {
	ProductName string          `json:"productName"`
	Amount      json.RawMessage `json:"amount"`
}

// POST /api/create-now-invoice
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.invoices.Configured() {
		h.writeResult(ctx, w, nil, invoice.ErrConfigIncomplete)
		return
	}

	var req CreateInvoiceRequestDTO
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)).Decode(&req); err != nil {
		h.log.WarnContext(ctx, "invalid invoice request body", "error", err)
		h.recordOutcome("invalid_request")
		respondInvoiceError(w, http.StatusInternalServerError, "Invalid request body")
		return
	}

	amount, err := invoice.ParseAmount(req.Amount)
	if err != nil {
		h.writeResult(ctx, w, nil, err)
		return
	}

	key := r.Header.Get(checkout.IdempotencyKeyHeader)
	if key == "" {
		h.createAndRespond(ctx, w, req.ProductName, amount)
		return
	}

	// Requests share a call only when key and body agree. The shared call
	// outlives whichever caller started it.
	flight := fmt.Sprintf("%q %s %q", key, amount.String(), req.ProductName)
	v, err, shared := h.group.Do(flight, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
		defer cancel()
		return h.invoices.Create(callCtx, req.ProductName, amount)
	})
	if shared {
		h.log.InfoContext(ctx, "coalesced invoice request", "idempotency_key", key)
	}
	body, _ := v.(json.RawMessage)
	h.writeResult(ctx, w, body, err)
}

func (h *InvoiceHandler) createAndRespond(ctx context.Context, w http.ResponseWriter, description string, amount decimal.Decimal) {
	if !h.invoices.Configured() {
		h.writeResult(ctx, w, nil, invoice.ErrConfigIncomplete)
		return
	}
	body, err := h.invoices.Create(ctx, description, amount)
	h.writeResult(ctx, w, body, err)
}

// writeResult relays the provider body on success. Every failure is a 500
// with the uniform invoice error body; details stay in the log.
func (h *InvoiceHandler) writeResult(ctx context.Context, w http.ResponseWriter, body json.RawMessage, err error) {
	if err == nil {
		h.recordOutcome("created")
		respondRawJSON(w, http.StatusOK, body)
		return
	}

	var (
		apiErr  *nowpayments.APIError
		message string
		outcome string
	)
	switch {
	case errors.Is(err, invoice.ErrConfigIncomplete):
		message, outcome = "Server configuration is incomplete", "config_error"
	case errors.Is(err, invoice.ErrInvalidAmount):
		message, outcome = "Invalid amount format", "invalid_amount"
	case errors.As(err, &apiErr):
		message, outcome = apiErr.Error(), "provider_error"
	case errors.Is(err, invoice.ErrProviderUnavailable):
		message, outcome = "Payment provider is unavailable", "provider_unavailable"
	default:
		message, outcome = "Failed to create invoice", "internal_error"
	}

	h.recordOutcome(outcome)
	h.log.ErrorContext(ctx, "invoice request failed", "outcome", outcome, "error", err)
	respondInvoiceError(w, http.StatusInternalServerError, message)
}

func (h *InvoiceHandler) recordOutcome(outcome string) {
	if h.metrics != nil {
		h.metrics.InvoiceOutcome(outcome)
	}
}
