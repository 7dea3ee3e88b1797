package domain

import "github.com/shopspring/decimal"

// Product is a catalog entry. Products are defined by the catalog and never
// mutated by cart operations.
type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Features []string        `json:"features,omitempty"`
}
