package handlers

import (
	"context"

	"shopup-backend/internal/models"
)

// ProductServiceInterface defines the contract for product service
type ProductServiceInterface interface {
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
}
