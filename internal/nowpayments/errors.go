package nowpayments

import (
	"errors"
	"fmt"
)

var (
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrInvalidSignature    = errors.New("invalid IPN signature")
	ErrMalformedResponse   = errors.New("malformed provider response")
)

// APIError is a non-2xx reply from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Payment failed with status %d", e.StatusCode)
}
