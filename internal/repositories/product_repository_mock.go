package repositories

import (
	"context"
	"fmt"
	"sync"

	"catalog/internal/models"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
// Products are returned in insertion order.
type MockProductRepository struct {
	products map[string]models.Product
	order    []string
	err      error
	mu       sync.RWMutex
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[string]models.Product),
	}
}

// Seed adds products. ProductID must be non-empty and unique. Either the whole
// batch is added or none of it is.
func (r *MockProductRepository) Seed(products ...models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(products))
	for _, p := range products {
		if p.ProductID == "" {
			return fmt.Errorf("product ID is required")
		}
		_, inBatch := seen[p.ProductID]
		_, stored := r.products[p.ProductID]
		if inBatch || stored {
			return fmt.Errorf("product with ID %s already exists", p.ProductID)
		}
		seen[p.ProductID] = struct{}{}
	}

	for _, p := range products {
		r.products[p.ProductID] = p
		r.order = append(r.order, p.ProductID)
	}
	return nil
}

// FailWith makes every subsequent call return err. A nil err restores normal behaviour.
func (r *MockProductRepository) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// FindByID returns the product with the given ID, if any.
func (r *MockProductRepository) FindByID(ctx context.Context, id string) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.err != nil {
		return nil, r.err
	}
	product, ok := r.products[id]
	if !ok {
		return []models.Product{}, nil
	}
	return []models.Product{product}, nil
}

// FindAll returns all products.
func (r *MockProductRepository) FindAll(ctx context.Context) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.err != nil {
		return nil, r.err
	}
	productList := make([]models.Product, 0, len(r.order))
	for _, id := range r.order {
		productList = append(productList, r.products[id])
	}
	return productList, nil
}

// Ping reports the configured failure, if any.
func (r *MockProductRepository) Ping(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}
