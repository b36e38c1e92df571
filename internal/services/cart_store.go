package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"studiorent/internal/models"
	"studiorent/internal/storage"
)

// Outcome tells the caller what a cart mutation actually did.
type Outcome string

const (
	Accepted            Outcome = "accepted"
	RejectedAtCapacity  Outcome = "rejected_at_capacity"
	RejectedUnavailable Outcome = "rejected_unavailable"
	NotInCart           Outcome = "not_in_cart"
)

var itemValidator = validator.New()

// CartStore owns one ordered rental cart and mirrors it into a KV key.
//
// All mutations go through the stock guard. Callers only ever see copies of
// the rows. Persistence is asynchronous and best effort: the in-memory rows
// stay authoritative when storage fails.
type CartStore struct {
	mu      sync.Mutex
	items   []models.CartItem
	kv      storage.KV
	key     string
	ttl     time.Duration
	persist *persister
	closed  bool
	logger  *zap.Logger
}

// NewCartStore loads key from kv and starts the background writer. Absent,
// corrupt or invalid payloads start an empty cart.
func NewCartStore(ctx context.Context, kv storage.KV, key string, ttl time.Duration, logger *zap.Logger) *CartStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("cart_key", key))
	s := &CartStore{
		kv:      kv,
		key:     key,
		ttl:     ttl,
		persist: newPersister(kv, key, ttl, logger),
		logger:  logger,
	}
	s.items = loadCart(ctx, kv, key, logger)
	return s
}

func loadCart(ctx context.Context, kv storage.KV, key string, logger *zap.Logger) []models.CartItem {
	raw, err := kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return []models.CartItem{}
	}
	if err != nil {
		logger.Warn("CartStore.load - read failed, starting empty", zap.Error(err))
		return []models.CartItem{}
	}
	var items []models.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		logger.Warn("CartStore.load - corrupt payload discarded", zap.Error(err))
		return []models.CartItem{}
	}
	if err := ValidateCartItems(items); err != nil {
		logger.Warn("CartStore.load - invalid payload discarded", zap.Error(err))
		return []models.CartItem{}
	}
	if items == nil {
		items = []models.CartItem{}
	}
	logger.Debug("CartStore.load - cart restored", zap.Int("rows", len(items)))
	return items
}

// ValidateCartItems checks a decoded payload against the cart invariants.
func ValidateCartItems(items []models.CartItem) error {
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if err := itemValidator.Struct(item); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if item.PricePerDay.IsNegative() {
			return fmt.Errorf("row %d: negative pricePerDay", i)
		}
		if item.StockQuantity != nil && item.Quantity > *item.StockQuantity {
			return fmt.Errorf("row %d: quantity %d exceeds stock %d", i, item.Quantity, *item.StockQuantity)
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("row %d: duplicate id %q", i, item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

func (s *CartStore) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked hands the current rows to the writer. A closed store has no
// writer and writes through synchronously instead. Caller holds s.mu.
func (s *CartStore) persistLocked() {
	raw, err := json.Marshal(s.items)
	if err != nil {
		s.logger.Error("CartStore.persist - encode failed", zap.Error(err))
		return
	}
	if !s.closed {
		s.persist.submit(raw)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.kv.Set(ctx, s.key, raw, s.ttl); err != nil {
		s.logger.Warn("CartStore.persist - write-through failed", zap.Error(err))
	}
}

// AddItem adds one unit of e. A new id is appended with quantity 1; an existing
// row grows by one if the guard allows it and picks up the current catalog fields.
func (s *CartStore) AddItem(e models.Equipment) Outcome {
	if !IsRentable(e) {
		s.logger.Debug("CartStore.AddItem - equipment unavailable",
			zap.String("id", e.ID), zap.String("status", string(e.Status)))
		return RejectedUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexOf(e.ID); idx >= 0 {
		current := s.items[idx].Quantity
		if !CanAddMore(e.StockQuantity, current) {
			s.logger.Debug("CartStore.AddItem - at capacity",
				zap.String("id", e.ID), zap.Int("quantity", current))
			return RejectedAtCapacity
		}
		row := models.NewCartItem(e)
		row.Quantity = current + 1
		s.items[idx] = row
	} else {
		s.items = append(s.items, models.NewCartItem(e))
	}
	s.persistLocked()
	return Accepted
}

// UpdateQuantity sets the quantity of id. n <= 0 removes the row. Requests
// above the stock ceiling are clamped to it and reported as RejectedAtCapacity.
// A row whose stock has dropped to zero is removed and reported unavailable.
func (s *CartStore) UpdateQuantity(id string, n int) Outcome {
	if n <= 0 {
		if !s.RemoveItem(id) {
			return NotInCart
		}
		return Accepted
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return NotInCart
	}
	row := &s.items[idx]
	if row.StockQuantity != nil && *row.StockQuantity == 0 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
		s.persistLocked()
		return RejectedUnavailable
	}

	clamped := ClampQuantity(n, row.StockQuantity)
	if clamped != row.Quantity {
		row.Quantity = clamped
		s.persistLocked()
	}
	if clamped != n {
		return RejectedAtCapacity
	}
	return Accepted
}

// RemoveItem deletes the row for id and reports whether one existed.
func (s *CartStore) RemoveItem(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.persistLocked()
	return true
}

// Quantity returns the quantity for id, 0 when absent.
func (s *CartStore) Quantity(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.items[idx].Quantity
	}
	return 0
}

// CanAddMore is the check UI callers use to enable the add control.
func (s *CartStore) CanAddMore(e models.Equipment) bool {
	return IsRentable(e) && CanAddMore(e.StockQuantity, s.Quantity(e.ID))
}

// Clear empties the cart.
func (s *CartStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = []models.CartItem{}
	s.persistLocked()
}

// Release takes the quantities in taken out of the cart, dropping rows that
// reach zero. Rows added or grown after taken was read stay behind.
func (s *CartStore) Release(taken []models.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, t := range taken {
		idx := s.indexOf(t.ID)
		if idx < 0 {
			continue
		}
		changed = true
		if s.items[idx].Quantity <= t.Quantity {
			s.items = append(s.items[:idx], s.items[idx+1:]...)
			continue
		}
		s.items[idx].Quantity -= t.Quantity
	}
	if changed {
		s.persistLocked()
	}
}

// Items returns a deep copy of the rows in display order.
func (s *CartStore) Items() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CartItem, len(s.items))
	for i, item := range s.items {
		out[i] = item.Clone()
	}
	return out
}

// TotalItems is the sum of quantities.
func (s *CartStore) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, item := range s.items {
		n += item.Quantity
	}
	return n
}

// Flush waits for pending writes to reach storage.
func (s *CartStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	p := s.persist
	s.mu.Unlock()
	return p.flush(ctx)
}

// Close drains pending writes and stops the writer. Later mutations are
// written through to storage on the caller's goroutine until Reopen.
func (s *CartStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.persist.close(ctx)
}

// Reopen starts a fresh background writer on a closed store.
func (s *CartStore) Reopen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		return
	}
	s.persist = newPersister(s.kv, s.key, s.ttl, s.logger)
	s.closed = false
}
