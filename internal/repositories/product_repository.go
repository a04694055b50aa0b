package repositories

import (
	"context"

	"catalog/internal/models"
)

// ProductRepository defines the interface for read access to the catalog.
type ProductRepository interface {
	// FindByID returns the products whose ProductID equals id exactly.
	FindByID(ctx context.Context, id string) ([]models.Product, error)
	// FindAll returns every product in storage order.
	FindAll(ctx context.Context) ([]models.Product, error)
	Ping(ctx context.Context) error
}
