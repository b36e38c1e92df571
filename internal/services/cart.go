package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"studiorent/internal/database"
	"studiorent/internal/models"
	"studiorent/internal/storage"
)

// ErrEquipmentNotFound is returned when a cart operation names an unknown catalog id.
var ErrEquipmentNotFound = errors.New("equipment not found")

const cartKeyPrefix = "cart:"

// CartService keeps one CartStore per session. Stores live in a bounded LRU;
// an evicted store is closed so its last snapshot reaches storage, and is
// parked in a second LRU of retired stores. A request for a retired session
// reopens the same store, so handles still held by in-flight requests keep
// pointing at the live cart.
type CartService struct {
	db     database.DBInterface
	kv     storage.KV
	ttl    time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	carts   *lru.Cache
	retired *lru.Cache
}

// NewCartService builds the session registry. size bounds the number of live stores.
func NewCartService(db database.DBInterface, kv storage.KV, size int, ttl time.Duration, logger *zap.Logger) (*CartService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cs := &CartService{
		db:     db,
		kv:     kv,
		ttl:    ttl,
		logger: logger,
	}
	cache, err := lru.NewWithEvict(size, cs.onEvict)
	if err != nil {
		return nil, fmt.Errorf("cart cache: %w", err)
	}
	cs.carts = cache
	if cs.retired, err = lru.New(size); err != nil {
		return nil, fmt.Errorf("retired cart cache: %w", err)
	}
	return cs, nil
}

func (cs *CartService) onEvict(key, value interface{}) {
	store, ok := value.(*CartStore)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := store.Close(ctx); err != nil {
		cs.logger.Warn("CartService.evict - close failed", zap.Any("session", key), zap.Error(err))
	}
	cs.retired.Add(key, store)
}

// CartKey is the storage key for a session's cart.
func CartKey(sessionID string) string {
	return cartKeyPrefix + sessionID
}

// GetCart returns the live store for sessionID, loading it from storage on first use.
func (cs *CartService) GetCart(ctx context.Context, sessionID string) *CartStore {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if v, ok := cs.carts.Get(sessionID); ok {
		return v.(*CartStore)
	}
	if v, ok := cs.retired.Peek(sessionID); ok {
		cs.retired.Remove(sessionID)
		store := v.(*CartStore)
		store.Reopen()
		cs.carts.Add(sessionID, store)
		cs.logger.Debug("CartService.GetCart - retired store reopened", zap.String("session", sessionID))
		return store
	}
	store := NewCartStore(ctx, cs.kv, CartKey(sessionID), cs.ttl, cs.logger.With(zap.String("session", sessionID)))
	cs.carts.Add(sessionID, store)
	cs.logger.Debug("CartService.GetCart - store opened", zap.String("session", sessionID))
	return store
}

func (cs *CartService) lookup(id string) (models.Equipment, error) {
	e, err := cs.db.GetEquipmentByID(id)
	if errors.Is(err, database.ErrNotFound) {
		return models.Equipment{}, ErrEquipmentNotFound
	}
	if err != nil {
		return models.Equipment{}, err
	}
	return *e, nil
}

// AddToCart resolves equipmentID against the catalog and adds one unit.
func (cs *CartService) AddToCart(ctx context.Context, sessionID, equipmentID string) (Outcome, error) {
	e, err := cs.lookup(equipmentID)
	if err != nil {
		return "", err
	}
	outcome := cs.GetCart(ctx, sessionID).AddItem(e)
	cs.logger.Info("CartService.AddToCart",
		zap.String("session", sessionID),
		zap.String("equipment", equipmentID),
		zap.String("outcome", string(outcome)))
	return outcome, nil
}

// UpdateCartItem sets an explicit quantity; quantity <= 0 removes the row.
func (cs *CartService) UpdateCartItem(ctx context.Context, sessionID, equipmentID string, quantity int) Outcome {
	outcome := cs.GetCart(ctx, sessionID).UpdateQuantity(equipmentID, quantity)
	cs.logger.Info("CartService.UpdateCartItem",
		zap.String("session", sessionID),
		zap.String("equipment", equipmentID),
		zap.Int("quantity", quantity),
		zap.String("outcome", string(outcome)))
	return outcome
}

// RemoveFromCart drops the row and reports whether it was present.
func (cs *CartService) RemoveFromCart(ctx context.Context, sessionID, equipmentID string) bool {
	return cs.GetCart(ctx, sessionID).RemoveItem(equipmentID)
}

// ClearCart empties the session's cart.
func (cs *CartService) ClearCart(ctx context.Context, sessionID string) {
	cs.logger.Info("CartService.ClearCart", zap.String("session", sessionID))
	cs.GetCart(ctx, sessionID).Clear()
}

// GetCartCount returns the total number of units in the session's cart.
func (cs *CartService) GetCartCount(ctx context.Context, sessionID string) int {
	return cs.GetCart(ctx, sessionID).TotalItems()
}

// Quote prices the session's cart for days.
func (cs *CartService) Quote(ctx context.Context, sessionID string, days int) Quote {
	return BuildQuote(cs.GetCart(ctx, sessionID).Items(), days)
}

// Len is the number of live stores.
func (cs *CartService) Len() int {
	return cs.carts.Len()
}

// Shutdown closes every live store, flushing pending snapshots.
func (cs *CartService) Shutdown() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.carts.Purge()
	cs.retired.Purge()
}
