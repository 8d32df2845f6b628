package repositories

import (
	"context"
	"errors"

	"shopup-backend/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// AdminRepository reads admin_users.
type AdminRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.AdminUser, error)
}

// SellerRepository reads sellers.
type SellerRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Seller, error)
}

// ProductRepository reads the product catalog.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	// GetByIDs returns the products that exist; unknown ids are skipped.
	GetByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	ListActive(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
}

const (
	defaultPageSize = 24
	maxPageSize     = 100
)

func pageSize(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageSize
	case limit > maxPageSize:
		return maxPageSize
	default:
		return limit
	}
}
