package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/larder/internal/domain"
	"github.com/google/uuid"
)

// ProductStore is an in-memory domain.ProductStore.
type ProductStore struct {
	mu       sync.RWMutex
	products map[uuid.UUID]domain.Product
	now      func() time.Time
}

// Compile-time check that ProductStore implements domain.ProductStore.
var _ domain.ProductStore = (*ProductStore)(nil)

// NewProductStore creates a catalog holding the given products.
func NewProductStore(products ...domain.Product) *ProductStore {
	s := &ProductStore{
		products: make(map[uuid.UUID]domain.Product, len(products)),
		now:      time.Now,
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *ProductStore) Lookup(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok {
		return nil, domain.NotFoundWith("product.lookup", "Product", "productId", productID)
	}
	return &p, nil
}

// Put inserts or replaces a product without validation.
func (s *ProductStore) Put(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *ProductStore) ListProducts(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		return strings.ToLower(all[i].Name) < strings.ToLower(all[j].Name)
	})

	if offset >= len(all) {
		return []domain.Product{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *ProductStore) CountProducts(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products), nil
}

func (s *ProductStore) ProductNameExists(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, p := range s.products {
		if id != excludeID && strings.EqualFold(p.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (s *ProductStore) CreateProduct(ctx context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := s.now()
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = *product
	return nil
}

func (s *ProductStore) UpdateProduct(ctx context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; !ok {
		return domain.NotFoundWith("product.update", "Product", "productId", product.ID)
	}
	product.UpdatedAt = s.now()
	s.products[product.ID] = *product
	return nil
}

func (s *ProductStore) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[productID]; !ok {
		return domain.NotFoundWith("product.delete", "Product", "productId", productID)
	}
	delete(s.products, productID)
	return nil
}
