package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/fjod/botstore/internal/domain"
	"github.com/fjod/botstore/internal/storage"
	"github.com/shopspring/decimal"
)

var ErrNotLoaded = errors.New("cart has not been loaded")

const backgroundWriteTimeout = 5 * time.Second

// Store is the authoritative in-memory cart, mirrored to a Storage under a
// fixed key. Nothing is written until Load has completed, so an empty cart
// built before loading can never overwrite saved state.
type Store struct {
	storage  storage.Storage
	key      string
	debounce time.Duration
	manual   bool
	log      *slog.Logger

	mu     sync.Mutex
	lines  []domain.CartLine
	loaded bool
	dirty  bool
	timer  *time.Timer

	// serializes writes; each write snapshots the newest state, so the
	// last write always carries the latest cart
	writeMu sync.Mutex
}

type Option func(*Store)

// WithDebounce collapses bursts of mutations into a single write issued d
// after the last one. Zero writes after every mutation.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.debounce = d }
}

// WithManualFlush leaves all writes to Flush and Persist. Request-scoped
// stores use it so the caller sees the storage error.
func WithManualFlush() Option {
	return func(s *Store) { s.manual = true }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

func NewStore(st storage.Storage, key string, opts ...Option) *Store {
	s := &Store{
		storage: st,
		key:     key,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory cart with the stored one. Missing data yields an
// empty cart. Unreadable data is discarded (and removed from storage) and also
// yields an empty cart. Only a storage failure is returned, in which case the
// store stays unloaded and will not write.
func (s *Store) Load(ctx context.Context) error {
	var lines []domain.CartLine

	data, err := s.storage.Load(ctx, s.key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load cart: %w", err)
	default:
		lines, err = decode(data)
		if err != nil {
			s.log.WarnContext(ctx, "discarding unreadable stored cart", "key", s.key, "error", err)
			if errDelete := s.storage.Delete(ctx, s.key); errDelete != nil {
				s.log.WarnContext(ctx, "failed to remove unreadable stored cart", "key", s.key, "error", errDelete)
			}
			lines = nil
		}
	}

	s.mu.Lock()
	s.lines = lines
	s.loaded = true
	s.dirty = false
	s.mu.Unlock()
	return nil
}

func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// AddItem increments the line for p.ID, or appends a new line with quantity 1.
func (s *Store) AddItem(p domain.Product) {
	s.mutate(func() bool {
		if i := s.indexOf(p.ID); i >= 0 {
			s.lines[i].Quantity++
			return true
		}
		s.lines = append(s.lines, domain.CartLine{Product: p, Quantity: 1})
		return true
	})
}

// UpdateQuantity sets the quantity of an existing line. Quantities below 1
// and unknown ids are ignored; removal goes through RemoveItem.
func (s *Store) UpdateQuantity(id int64, quantity int) {
	if quantity < 1 {
		return
	}
	s.mutate(func() bool {
		i := s.indexOf(id)
		if i < 0 || s.lines[i].Quantity == quantity {
			return false
		}
		s.lines[i].Quantity = quantity
		return true
	})
}

func (s *Store) RemoveItem(id int64) {
	s.mutate(func() bool {
		i := s.indexOf(id)
		if i < 0 {
			return false
		}
		s.lines = slices.Delete(s.lines, i, i+1)
		return true
	})
}

func (s *Store) Clear() {
	s.mutate(func() bool {
		if len(s.lines) == 0 {
			return false
		}
		s.lines = nil
		return true
	})
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lines)
}

func (s *Store) Has(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(id) >= 0
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

func (s *Store) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Subtotal(s.lines)
}

func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ItemCount(s.lines)
}

// Persist writes the current cart regardless of pending changes.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	s.dirty = true
	s.mu.Unlock()
	return s.Flush(ctx)
}

// Flush writes pending changes, if any, and reports the storage error.
func (s *Store) Flush(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !s.loaded || !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snapshot := slices.Clone(s.lines)
	s.dirty = false
	s.mu.Unlock()

	data, err := encode(snapshot)
	if err == nil {
		err = s.storage.Save(ctx, s.key, data)
	}
	if err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

// Close cancels any scheduled write and flushes pending changes.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	return s.Flush(ctx)
}

func (s *Store) mutate(fn func() bool) {
	s.mu.Lock()
	changed := fn()
	if changed {
		s.dirty = true
	}
	writeNow := false
	if changed && s.loaded && !s.manual {
		if s.debounce > 0 {
			if s.timer == nil {
				s.timer = time.AfterFunc(s.debounce, s.backgroundFlush)
			} else {
				s.timer.Reset(s.debounce)
			}
		} else {
			writeNow = true
		}
	}
	s.mu.Unlock()

	if writeNow {
		s.backgroundFlush()
	}
}

func (s *Store) backgroundFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundWriteTimeout)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		s.log.Error("cart write failed", "key", s.key, "error", err)
	}
}

// indexOf must be called with mu held.
func (s *Store) indexOf(id int64) int {
	return slices.IndexFunc(s.lines, func(l domain.CartLine) bool { return l.ID == id })
}
