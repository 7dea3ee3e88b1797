package invoice

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest USD price an invoice may carry.
var MaxAmount = decimal.NewFromInt(1_000_000)

const (
	maxAmountText     = 40
	maxAmountDigits   = 32
	minAmountExponent = -18
	maxAmountExponent = 18
)

// ParseAmount accepts a JSON number or a string holding one. Missing, null,
// blank, non-finite, negative and out of range values are ErrInvalidAmount.
func ParseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, ErrInvalidAmount
	}

	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, ErrInvalidAmount
		}
		text = strings.TrimSpace(s)
	}
	if text == "" || len(text) > maxAmountText {
		return decimal.Zero, ErrInvalidAmount
	}

	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// ValidateAmount bounds the exponent and digit count before any comparison,
// so formatting the amount later stays cheap.
func ValidateAmount(amount decimal.Decimal) error {
	exp := amount.Exponent()
	if exp < minAmountExponent || exp > maxAmountExponent || amount.NumDigits() > maxAmountDigits {
		return ErrInvalidAmount
	}
	if amount.IsNegative() || amount.GreaterThan(MaxAmount) {
		return ErrInvalidAmount
	}
	return nil
}
