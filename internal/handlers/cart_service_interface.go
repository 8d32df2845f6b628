package handlers

import (
	"context"

	"shopup-backend/internal/models"
)

// CartServiceInterface defines the contract for cart service
type CartServiceInterface interface {
	GetCart(ctx context.Context, owner string) models.Cart
	Add(ctx context.Context, owner, productID string, quantity int) (models.Cart, error)
	Remove(ctx context.Context, owner, productID string) (models.Cart, error)
	ChangeQty(ctx context.Context, owner, productID string, delta int) (models.Cart, error)
	CountItems(ctx context.Context, owner string) int
	Clear(ctx context.Context, owner string) error
	Summary(ctx context.Context, owner string) (*models.CartSummary, error)
}
