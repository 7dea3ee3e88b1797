package catalog

import (
	"context"
	"errors"

	"github.com/fjod/botstore/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// Catalog is a read-only source of products.
type Catalog interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id int64) (domain.Product, error)
}
