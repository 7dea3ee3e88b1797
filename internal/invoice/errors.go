package invoice

import (
	"errors"

	"github.com/fjod/botstore/internal/nowpayments"
)

var (
	ErrConfigIncomplete = errors.New("server configuration is incomplete")
	ErrInvalidAmount    = errors.New("invalid amount format")

	ErrProviderUnavailable = nowpayments.ErrProviderUnavailable
)
