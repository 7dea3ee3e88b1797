package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/botstore/internal/cart"
	"github.com/fjod/botstore/internal/catalog"
	"github.com/fjod/botstore/internal/domain"
	"github.com/fjod/botstore/internal/quote"
	"github.com/fjod/botstore/internal/storage"
	"github.com/shopspring/decimal"
)

const sessionCheckoutDescription = "Cart Purchase"

// CartHandler serves session carts. Each request loads the session's cart,
// applies one operation and flushes it back before replying.
type CartHandler struct {
	catalog  catalog.Catalog
	storage  storage.Storage
	invoices *InvoiceHandler
	timeout  time.Duration
	log      *slog.Logger
}

func NewCartHandler(c catalog.Catalog, st storage.Storage, invoices *InvoiceHandler, timeout time.Duration, log *slog.Logger) *CartHandler {
	return &CartHandler{
		catalog:  c,
		storage:  st,
		invoices: invoices,
		timeout:  timeout,
		log:      log,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartItemDTO struct {
	domain.CartLine
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartResponse struct {
	Items     []CartItemDTO   `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	ItemCount int             `json:"item_count"`
}

func newCartResponse(s *cart.Store) CartResponse {
	lines := s.Lines()
	items := make([]CartItemDTO, len(lines))
	for i, l := range lines {
		items[i] = CartItemDTO{CartLine: l, LineTotal: l.LineTotal()}
	}
	return CartResponse{
		Items:     items,
		Subtotal:  domain.Subtotal(lines),
		ItemCount: domain.ItemCount(lines),
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := h.loadCart(ctx, w)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, newCartResponse(s))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	p, err := h.catalog.Get(ctx, req.ProductID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
		return
	}
	if err != nil {
		h.log.ErrorContext(ctx, "failed to get product", "product_id", req.ProductID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	s, ok := h.loadCart(ctx, w)
	if !ok {
		return
	}
	s.AddItem(p)
	if !h.flushCart(ctx, w, s) {
		return
	}

	respondJSON(w, http.StatusCreated, newCartResponse(s))
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	s, ok := h.loadCart(ctx, w)
	if !ok {
		return
	}
	if !s.Has(productID) {
		respondError(w, http.StatusNotFound, "item_not_found", "product "+strconv.FormatInt(productID, 10)+" is not in the cart")
		return
	}
	s.UpdateQuantity(productID, req.Quantity)
	if !h.flushCart(ctx, w, s) {
		return
	}

	respondJSON(w, http.StatusOK, newCartResponse(s))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	s, ok := h.loadCart(ctx, w)
	if !ok {
		return
	}
	s.RemoveItem(productID)
	if !h.flushCart(ctx, w, s) {
		return
	}

	respondJSON(w, http.StatusOK, newCartResponse(s))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := h.loadCart(ctx, w)
	if !ok {
		return
	}
	s.Clear()
	if !h.flushCart(ctx, w, s) {
		return
	}

	respondJSON(w, http.StatusOK, newCartResponse(s))
}

// POST /api/v1/cart/checkout creates an invoice for the cart subtotal. The
// cart is left as it is whatever the outcome.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := h.loadCart(ctx, w)
	if !ok {
		return
	}
	if s.Len() == 0 {
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
		return
	}

	h.invoices.createAndRespond(ctx, w, sessionCheckoutDescription, s.Subtotal())
}

// GET /api/v1/cart/quote
func (h *CartHandler) Quote(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, ok := h.loadCart(ctx, w)
	if !ok {
		return
	}
	if s.Len() == 0 {
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
		return
	}

	var buf bytes.Buffer
	if err := quote.Render(&buf, s.Lines(), time.Now()); err != nil {
		h.log.ErrorContext(ctx, "failed to render quote", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="quote.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.log.ErrorContext(ctx, "failed to write quote", "error", err)
	}
}

func (h *CartHandler) loadCart(ctx context.Context, w http.ResponseWriter) (*cart.Store, bool) {
	sessionID := getSessionID(ctx)
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "missing_session", "missing cart session")
		return nil, false
	}

	s := cart.NewStore(h.storage, sessionID, cart.WithManualFlush(), cart.WithLogger(h.log))
	if err := s.Load(ctx); err != nil {
		h.log.ErrorContext(ctx, "failed to load cart", "session_id", sessionID, "error", err)
		respondError(w, http.StatusInternalServerError, "storage_error", "cart storage is unavailable")
		return nil, false
	}
	return s, true
}

func (h *CartHandler) flushCart(ctx context.Context, w http.ResponseWriter, s *cart.Store) bool {
	if err := s.Flush(ctx); err != nil {
		h.log.ErrorContext(ctx, "failed to save cart", "session_id", getSessionID(ctx), "error", err)
		respondError(w, http.StatusInternalServerError, "storage_error", "cart storage is unavailable")
		return false
	}
	return true
}
