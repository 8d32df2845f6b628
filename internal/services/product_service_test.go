package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopup-backend/internal/models"
	"shopup-backend/pkg/kvstore"
)

func TestProductService_GetProductCaches(t *testing.T) {
	ctx := context.Background()
	repo := newFakeProductRepo(models.Product{ID: "P1", Name: "Kente scarf", Price: 120, ImagePath: "s1/kente.jpg", IsActive: true})
	svc := NewProductService(repo, kvstore.NewMemory(), fakeImages{}, "product-images", nil)

	first, err := svc.GetProduct(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/product-images/s1/kente.jpg", first.ImageURL)

	second, err := svc.GetProduct(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.calls)
}

func TestProductService_InactiveOrMissing(t *testing.T) {
	ctx := context.Background()
	repo := newFakeProductRepo(models.Product{ID: "P1", IsActive: false})
	svc := NewProductService(repo, nil, nil, "", nil)

	_, err := svc.GetProduct(ctx, "P1")
	assert.ErrorIs(t, err, ErrProductNotFound)
	_, err = svc.GetProduct(ctx, "P2")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_ListProducts(t *testing.T) {
	ctx := context.Background()
	repo := newFakeProductRepo(
		models.Product{ID: "P1", IsActive: true, ImagePath: "a.jpg"},
		models.Product{ID: "P2", IsActive: false},
	)
	svc := NewProductService(repo, kvstore.NewMemory(), fakeImages{}, "product-images", nil)

	products, err := svc.ListProducts(ctx, models.ProductFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "https://cdn.test/product-images/a.jpg", products[0].ImageURL)

	_, err = svc.ListProducts(ctx, models.ProductFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)

	_, err = svc.ListProducts(ctx, models.ProductFilter{Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestProductService_EmptyListIsNotNil(t *testing.T) {
	svc := NewProductService(newFakeProductRepo(), nil, nil, "", nil)

	products, err := svc.ListProducts(context.Background(), models.ProductFilter{})
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}
