package storage

import (
	"context"
	"errors"
)

// Storage holds serialized cart documents under a key.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("stored value not found")
