package repositories

import (
	"context"
	"fmt"

	"catalog/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
// Every call runs on a connection checked out for that call only and handed
// back to the pool on return.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// FindByID retrieves the products matching id from the database.
func (r *GORMProductRepository) FindByID(ctx context.Context, id string) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		return conn.
			Where(clause.Eq{Column: clause.Column{Name: models.ColumnProductID}, Value: id}).
			Find(&products).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return products, nil
}

// FindAll retrieves all products from the database.
func (r *GORMProductRepository) FindAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		return conn.Find(&products).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// Ping checks that the database is reachable.
func (r *GORMProductRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}
