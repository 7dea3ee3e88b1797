package publisher

import (
	"encoding/json"
	"time"
)

const EventTypePaymentStatus = "PaymentStatusChanged"

// PaymentEvent is a verified IPN callback from the payment provider. Raw is
// the body exactly as signed.
type PaymentEvent struct {
	PaymentID        json.Number     `json:"payment_id"`
	PaymentStatus    string          `json:"payment_status"`
	OrderID          string          `json:"order_id"`
	OrderDescription string          `json:"order_description"`
	PriceAmount      json.Number     `json:"price_amount,omitempty"`
	PriceCurrency    string          `json:"price_currency"`
	PayAmount        json.Number     `json:"pay_amount,omitempty"`
	PayCurrency      string          `json:"pay_currency"`
	ActuallyPaid     json.Number     `json:"actually_paid,omitempty"`
	InvoiceID        json.Number     `json:"invoice_id,omitempty"`
	ReceivedAt       time.Time       `json:"received_at"`
	Raw              json.RawMessage `json:"raw"`
}
