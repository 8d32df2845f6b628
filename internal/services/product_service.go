package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"shopup-backend/internal/models"
	"shopup-backend/internal/repositories"
	"shopup-backend/pkg/kvstore"
)

var ErrProductNotFound = errors.New("product not found")

const (
	productListTTL   = 5 * time.Minute
	productDetailTTL = 15 * time.Minute
)

// ProductService is the read side of the catalog used by the storefront pages.
type ProductService struct {
	productRepo repositories.ProductRepository
	cache       kvstore.Store
	images      ImageURLResolver
	imageBucket string
	logger      *zap.Logger
}

func NewProductService(
	productRepo repositories.ProductRepository,
	cache kvstore.Store,
	images ImageURLResolver,
	imageBucket string,
	logger *zap.Logger,
) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		productRepo: productRepo,
		cache:       cache,
		images:      images,
		imageBucket: imageBucket,
		logger:      logger,
	}
}

func (s *ProductService) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	// Try cache first
	cacheKey := fmt.Sprintf("products:%s:%s:%d:%d", filter.SellerID, filter.Category, filter.Limit, filter.Offset)
	var cached []models.Product
	if s.cache != nil {
		if err := kvstore.GetJSON(ctx, s.cache, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	products, err := s.productRepo.ListActive(ctx, filter)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	for i := range products {
		s.resolveImage(&products[i])
	}

	s.store(ctx, cacheKey, products, productListTTL)
	return products, nil
}

// GetProduct returns an active product. Inactive products are reported as not
// found.
func (s *ProductService) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	cacheKey := "product:" + productID
	var cached models.Product
	if s.cache != nil {
		if err := kvstore.GetJSON(ctx, s.cache, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductNotFound
	}
	s.resolveImage(product)

	s.store(ctx, cacheKey, product, productDetailTTL)
	return product, nil
}

func (s *ProductService) resolveImage(p *models.Product) {
	if s.images != nil && p.ImagePath != "" {
		p.ImageURL = s.images.PublicURL(s.imageBucket, p.ImagePath)
	}
}

func (s *ProductService) store(ctx context.Context, key string, value any, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := kvstore.SetJSON(ctx, s.cache, key, value, ttl); err != nil {
		s.logger.Debug("product cache write failed", zap.String("key", key), zap.Error(err))
	}
}
