package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	InvoicePath          = "/api/create-now-invoice"
	IdempotencyKeyHeader = "Idempotency-Key"

	maxResponseBytes = 1 << 20
)

var (
	ErrCheckoutInFlight = errors.New("checkout already in progress")
	ErrNegativeAmount   = errors.New("checkout amount must not be negative")
)

// Error is a checkout the server refused or could not complete.
type Error struct {
	StatusCode int
	Message    string
	Suggestion string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("checkout failed with status %d", e.StatusCode)
	}
	return e.Message
}

// Invoice is a created provider invoice. Raw holds the response as received.
type Invoice struct {
	URL string
	ID  string
	Raw json.RawMessage
}

type invoiceRequestDTO struct {
	ProductName string      `json:"productName"`
	Amount      json.Number `json:"amount"`
}

type invoiceResponseDTO struct {
	InvoiceURL string          `json:"invoice_url"`
	ID         json.RawMessage `json:"id"`
	Error      string          `json:"error"`
	Suggestion string          `json:"suggestion"`
}

// Gateway hands a cart total to the storefront server, which turns it into a
// provider invoice. Only one checkout runs at a time per Gateway.
type Gateway struct {
	serverURL  string
	httpClient *http.Client
	inFlight   atomic.Bool
}

func NewGateway(serverURL string, httpClient *http.Client) *Gateway {
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Gateway{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: httpClient,
	}
}

// CreateInvoice makes exactly one request for an invoice of amount. It is
// never retried.
func (g *Gateway) CreateInvoice(ctx context.Context, description string, amount decimal.Decimal) (*Invoice, error) {
	if amount.IsNegative() {
		return nil, ErrNegativeAmount
	}
	if !g.inFlight.CompareAndSwap(false, true) {
		return nil, ErrCheckoutInFlight
	}
	defer g.inFlight.Store(false)

	payload, err := json.Marshal(invoiceRequestDTO{ProductName: description, Amount: json.Number(amount.String())})
	if err != nil {
		return nil, fmt.Errorf("marshal checkout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.serverURL+InvoicePath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdempotencyKeyHeader, uuid.NewString())

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checkout request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read checkout response: %w", err)
	}

	var body invoiceResponseDTO
	decodeErr := json.Unmarshal(data, &body)

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{StatusCode: resp.StatusCode, Message: body.Error, Suggestion: body.Suggestion}
	}
	if decodeErr != nil || body.InvoiceURL == "" {
		return nil, &Error{StatusCode: resp.StatusCode, Message: "Payment failed."}
	}

	return &Invoice{
		URL: body.InvoiceURL,
		ID:  invoiceID(body.ID),
		Raw: json.RawMessage(data),
	}, nil
}

// The provider sends the id as a string in some responses and a number in
// others.
func invoiceID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
