package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/botstore/internal/nowpayments"
	"github.com/fjod/botstore/internal/publisher"
)

const SignatureHeader = "x-nowpayments-sig"

// WebhookHandler receives IPN callbacks, checks their signature and forwards
// them as payment events. Nothing is stored here.
type WebhookHandler struct {
	secret    string
	publisher publisher.Publisher
	log       *slog.Logger
	maxBody   int64
	now       func() time.Time
}

func NewWebhookHandler(secret string, p publisher.Publisher, log *slog.Logger, maxBody int64) *WebhookHandler {
	return &WebhookHandler{
		secret:    secret,
		publisher: p,
		log:       log,
		maxBody:   maxBody,
		now:       time.Now,
	}
}

// POST /api/nowpayments-webhook
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.secret == "" {
		h.log.ErrorContext(ctx, "IPN received but NOWPAYMENTS_IPN_SECRET is not set")
		respondError(w, http.StatusInternalServerError, "configuration_error", "Server configuration is incomplete")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "unreadable body")
		return
	}

	if err := nowpayments.VerifySignature(body, r.Header.Get(SignatureHeader), h.secret); err != nil {
		h.log.WarnContext(ctx, "rejected IPN callback", "error", err)
		respondError(w, http.StatusUnauthorized, "invalid_signature", "invalid signature")
		return
	}

	var ev publisher.PaymentEvent
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&ev); err != nil {
		h.log.WarnContext(ctx, "undecodable IPN callback", "error", err)
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if ev.OrderID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "order_id is required")
		return
	}
	ev.Raw = json.RawMessage(body)
	ev.ReceivedAt = h.now().UTC()

	if err := h.publisher.Publish(ctx, ev); err != nil {
		h.log.ErrorContext(ctx, "failed to publish payment event", "order_id", ev.OrderID, "error", err)
		respondError(w, http.StatusInternalServerError, "publish_failed", "failed to record payment status")
		return
	}

	h.log.InfoContext(ctx, "IPN accepted", "order_id", ev.OrderID, "payment_status", ev.PaymentStatus)
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

