// Package memory provides in-process implementations of the storage
// contracts. They back the server when STORE_BACKEND=memory and are the
// stores used by service and handler tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dukerupert/larder/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type cartState struct {
	carts   map[uuid.UUID]domain.Cart
	byOwner map[uuid.UUID]uuid.UUID
	items   map[uuid.UUID]map[uuid.UUID]domain.CartItem // cart ID -> product ID -> item
}

func (s *cartState) clone() *cartState {
	c := &cartState{
		carts:   make(map[uuid.UUID]domain.Cart, len(s.carts)),
		byOwner: make(map[uuid.UUID]uuid.UUID, len(s.byOwner)),
		items:   make(map[uuid.UUID]map[uuid.UUID]domain.CartItem, len(s.items)),
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.byOwner {
		c.byOwner[k] = v
	}
	for cartID, lines := range s.items {
		m := make(map[uuid.UUID]domain.CartItem, len(lines))
		for k, v := range lines {
			m[k] = v
		}
		c.items[cartID] = m
	}
	return c
}

// CartStore is an in-memory domain.CartStore.
//
// Units of work run one at a time against a private copy of the state,
// which replaces the shared state only when fn succeeds.
type CartStore struct {
	mu    sync.Mutex
	state *cartState
	now   func() time.Time
}

// Compile-time check that CartStore implements domain.CartStore.
var _ domain.CartStore = (*CartStore)(nil)

// NewCartStore creates an empty cart store.
func NewCartStore() *CartStore {
	return &CartStore{
		state: &cartState{
			carts:   make(map[uuid.UUID]domain.Cart),
			byOwner: make(map[uuid.UUID]uuid.UUID),
			items:   make(map[uuid.UUID]map[uuid.UUID]domain.CartItem),
		},
		now: time.Now,
	}
}

func (s *CartStore) InTx(ctx context.Context, fn func(tx domain.CartTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &cartTx{state: s.state.clone(), now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *CartStore) ListCarts(ctx context.Context) ([]domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	carts := make([]domain.Cart, 0, len(s.state.carts))
	for _, c := range s.state.carts {
		carts = append(carts, c)
	}
	sort.Slice(carts, func(i, j int) bool {
		if carts[i].CreatedAt.Equal(carts[j].CreatedAt) {
			return carts[i].ID.String() < carts[j].ID.String()
		}
		return carts[i].CreatedAt.Before(carts[j].CreatedAt)
	})
	return carts, nil
}

func (s *CartStore) CartsWithProduct(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []uuid.UUID
	for cartID, lines := range s.state.items {
		if _, ok := lines[productID]; ok {
			ids = append(ids, cartID)
		}
	}
	return ids, nil
}

func (s *CartStore) ListItems(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedItems(s.state.items[cartID]), nil
}

// cartTx implements domain.CartTx over a private copy of the state.
type cartTx struct {
	state *cartState
	now   func() time.Time
}

func (tx *cartTx) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Cart, error) {
	cartID, ok := tx.state.byOwner[ownerID]
	if !ok {
		return nil, nil
	}
	return tx.FindByID(ctx, cartID)
}

func (tx *cartTx) FindByOwnerAndID(ctx context.Context, ownerID, cartID uuid.UUID) (*domain.Cart, error) {
	cart, err := tx.FindByID(ctx, cartID)
	if err != nil || cart == nil {
		return nil, err
	}
	if cart.OwnerID != ownerID {
		return nil, nil
	}
	return cart, nil
}

func (tx *cartTx) FindByID(ctx context.Context, cartID uuid.UUID) (*domain.Cart, error) {
	c, ok := tx.state.carts[cartID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (tx *cartTx) CreateCart(ctx context.Context, ownerID uuid.UUID) (*domain.Cart, error) {
	if existing, _ := tx.FindByOwner(ctx, ownerID); existing != nil {
		return existing, nil
	}

	now := tx.now()
	c := domain.Cart{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		TotalPrice: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	tx.state.carts[c.ID] = c
	tx.state.byOwner[ownerID] = c.ID
	return &c, nil
}

func (tx *cartTx) FindItem(ctx context.Context, cartID, productID uuid.UUID) (*domain.CartItem, error) {
	item, ok := tx.state.items[cartID][productID]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (tx *cartTx) ListItems(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	return sortedItems(tx.state.items[cartID]), nil
}

func (tx *cartTx) SaveCart(ctx context.Context, cart *domain.Cart) error {
	cart.UpdatedAt = tx.now()
	tx.state.carts[cart.ID] = *cart
	return nil
}

func (tx *cartTx) SaveItem(ctx context.Context, item *domain.CartItem) error {
	now := tx.now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	lines, ok := tx.state.items[item.CartID]
	if !ok {
		lines = make(map[uuid.UUID]domain.CartItem)
		tx.state.items[item.CartID] = lines
	}
	lines[item.ProductID] = *item
	return nil
}

func (tx *cartTx) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error {
	delete(tx.state.items[cartID], productID)
	return nil
}

func sortedItems(lines map[uuid.UUID]domain.CartItem) []domain.CartItem {
	items := make([]domain.CartItem, 0, len(lines))
	for _, item := range lines {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ProductID.String() < items[j].ProductID.String()
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items
}
