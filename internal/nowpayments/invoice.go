package nowpayments

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	PriceCurrency = "usd"
	PayCurrency   = "usdt"

	webhookPath = "/api/nowpayments-webhook"
	successPath = "/success"
	cancelPath  = "/cancel"
)

// InvoiceRequest is the body of POST /invoice.
type InvoiceRequest struct {
	PriceAmount      string `json:"price_amount"`
	PriceCurrency    string `json:"price_currency"`
	PayCurrency      string `json:"pay_currency"`
	IPNCallbackURL   string `json:"ipn_callback_url"`
	OrderID          string `json:"order_id"`
	OrderDescription string `json:"order_description"`
	SuccessURL       string `json:"success_url"`
	CancelURL        string `json:"cancel_url"`
	IsFixedRate      bool   `json:"is_fixed_rate"`
	IsFeePaidByUser  bool   `json:"is_fee_paid_by_user"`
}

// NewInvoiceRequest builds a fixed-rate USD invoice settled in USDT, with the
// callback and redirect URLs rooted at siteURL.
func NewInvoiceRequest(siteURL, orderID, description string, amount decimal.Decimal) InvoiceRequest {
	base := strings.TrimRight(siteURL, "/")
	return InvoiceRequest{
		PriceAmount:      amount.StringFixed(2),
		PriceCurrency:    PriceCurrency,
		PayCurrency:      PayCurrency,
		IPNCallbackURL:   base + webhookPath,
		OrderID:          orderID,
		OrderDescription: description,
		SuccessURL:       base + successPath,
		CancelURL:        base + cancelPath,
		IsFixedRate:      true,
		IsFeePaidByUser:  true,
	}
}
