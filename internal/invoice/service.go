package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/botstore/internal/nowpayments"
	"github.com/shopspring/decimal"
)

// Provider creates invoices with the payment provider.
type Provider interface {
	Configured() bool
	CreateInvoice(ctx context.Context, req nowpayments.InvoiceRequest) (json.RawMessage, error)
}

type Service struct {
	provider Provider
	siteURL  string
	orderIDs *nowpayments.OrderIDs
	log      *slog.Logger
}

func NewService(provider Provider, siteURL string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		provider: provider,
		siteURL:  siteURL,
		orderIDs: nowpayments.NewOrderIDs(),
		log:      log,
	}
}

// Configured reports whether invoices can be created at all.
func (s *Service) Configured() bool {
	return s.siteURL != "" && s.provider.Configured()
}

// Create asks the provider for a USDT invoice of amount USD and returns the
// provider's response body unchanged.
func (s *Service) Create(ctx context.Context, description string, amount decimal.Decimal) (json.RawMessage, error) {
	if !s.Configured() {
		s.log.ErrorContext(ctx, "invoice creation is not configured",
			"site_url_set", s.siteURL != "", "api_key_set", s.provider.Configured())
		return nil, ErrConfigIncomplete
	}
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}

	req := nowpayments.NewInvoiceRequest(s.siteURL, s.orderIDs.Next(), description, amount)
	body, err := s.provider.CreateInvoice(ctx, req)
	if err != nil {
		var apiErr *nowpayments.APIError
		if errors.As(err, &apiErr) {
			s.log.ErrorContext(ctx, "payment provider rejected invoice",
				"order_id", req.OrderID, "status", apiErr.StatusCode, "error", apiErr.Error())
			return nil, err
		}
		s.log.ErrorContext(ctx, "invoice creation failed", "order_id", req.OrderID, "error", err)
		return nil, fmt.Errorf("create invoice %s: %w", req.OrderID, err)
	}

	s.log.InfoContext(ctx, "invoice created", "order_id", req.OrderID, "amount", req.PriceAmount)
	return body, nil
}
