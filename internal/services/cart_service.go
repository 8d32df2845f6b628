package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"shopup-backend/internal/models"
	"shopup-backend/internal/repositories"
	"shopup-backend/pkg/kvstore"
	"shopup-backend/pkg/messaging"
	"shopup-backend/pkg/metrics"
	"shopup-backend/pkg/observability"
)

// MaxLineQuantity caps the quantity of a single cart line.
const MaxLineQuantity = 9999

var (
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrQuantityLimit   = fmt.Errorf("%w and at most %d per product", ErrInvalidQuantity, MaxLineQuantity)
	ErrInvalidProduct  = errors.New("product id is required")
	ErrNoCartOwner     = errors.New("cart owner is required")
	ErrCartNotSaved    = errors.New("could not save cart")
)

// ImageURLResolver turns a stored image path into a public URL.
type ImageURLResolver interface {
	PublicURL(bucket, path string) string
}

type CartConfig struct {
	KeyPrefix   string
	Currency    string
	ImageBucket string
}

// CartService keeps one cart per owner (a user id or a guest id). Carts reference
// products by id only; prices are read from the catalog when a summary is built.
type CartService struct {
	store     kvstore.Store
	products  repositories.ProductRepository
	images    ImageURLResolver
	publisher messaging.Publisher
	logger    *zap.Logger
	cfg       CartConfig
}

func NewCartService(
	store kvstore.Store,
	products repositories.ProductRepository,
	images ImageURLResolver,
	publisher messaging.Publisher,
	logger *zap.Logger,
	cfg CartConfig,
) *CartService {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "cart"
	}
	if cfg.Currency == "" {
		cfg.Currency = models.DefaultCurrency
	}
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{
		store:     store,
		products:  products,
		images:    images,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
	}
}

func (s *CartService) key(owner string) string {
	return kvstore.Key(s.cfg.KeyPrefix, owner)
}

// GetCart never fails: a missing, unreadable or corrupted cart is an empty cart.
func (s *CartService) GetCart(ctx context.Context, owner string) models.Cart {
	if owner == "" {
		return models.Cart{}
	}

	raw, err := s.store.Get(ctx, s.key(owner))
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			s.log(ctx).Warn("cart read failed, using empty cart", zap.String("owner_id", owner), zap.Error(err))
		}
		return models.Cart{}
	}

	cart, err := decodeCart(raw)
	if err != nil {
		s.log(ctx).Warn("stored cart is corrupted, using empty cart", zap.String("owner_id", owner), zap.Error(err))
		return models.Cart{}
	}
	return cart
}

// Add merges quantity into the line for productID, appending a line when the
// product is not in the cart yet.
func (s *CartService) Add(ctx context.Context, owner, productID string, quantity int) (models.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return models.Cart{}, ErrInvalidProduct
	}
	if quantity <= 0 {
		return models.Cart{}, ErrInvalidQuantity
	}
	if quantity > MaxLineQuantity {
		return models.Cart{}, ErrQuantityLimit
	}

	return s.mutate(ctx, "add", owner, productID, func(cart *models.Cart) (bool, error) {
		line, ok := cart.Find(productID)
		if ok && line.Quantity > MaxLineQuantity-quantity {
			return false, ErrQuantityLimit
		}
		addLine(cart, productID, quantity)
		return true, nil
	})
}

// Remove drops the line for productID. Removing an absent product is a no-op.
func (s *CartService) Remove(ctx context.Context, owner, productID string) (models.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return models.Cart{}, ErrInvalidProduct
	}

	return s.mutate(ctx, "remove", owner, productID, func(cart *models.Cart) (bool, error) {
		for i, line := range cart.Lines {
			if line.ProductID == productID {
				cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
				return true, nil
			}
		}
		return false, nil
	})
}

// ChangeQty adds delta to the line for productID. A line that reaches zero or
// below is removed. Unknown products are a no-op.
func (s *CartService) ChangeQty(ctx context.Context, owner, productID string, delta int) (models.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return models.Cart{}, ErrInvalidProduct
	}

	return s.mutate(ctx, "change_qty", owner, productID, func(cart *models.Cart) (bool, error) {
		if delta == 0 {
			return false, nil
		}
		for i := range cart.Lines {
			if cart.Lines[i].ProductID != productID {
				continue
			}
			if delta > MaxLineQuantity-cart.Lines[i].Quantity {
				return false, ErrQuantityLimit
			}
			cart.Lines[i].Quantity += delta
			if cart.Lines[i].Quantity <= 0 {
				cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
			}
			return true, nil
		}
		return false, nil
	})
}

// CountItems is the sum of quantities, not the number of lines.
func (s *CartService) CountItems(ctx context.Context, owner string) int {
	return s.GetCart(ctx, owner).ItemCount()
}

func (s *CartService) Clear(ctx context.Context, owner string) error {
	if owner == "" {
		return ErrNoCartOwner
	}

	err := s.store.Delete(ctx, s.key(owner))
	metrics.RecordCartMutation("clear", err)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCartNotSaved, err)
	}

	s.publish(ctx, "clear", owner, "", 0, 0)
	return nil
}

// Merge folds the cart of fromOwner into the cart of toOwner and clears the
// former. Lines already in the target cart keep their position.
func (s *CartService) Merge(ctx context.Context, fromOwner, toOwner string) (models.Cart, error) {
	if fromOwner == "" || toOwner == "" {
		return models.Cart{}, ErrNoCartOwner
	}
	if fromOwner == toOwner {
		return s.GetCart(ctx, toOwner), nil
	}

	source := s.GetCart(ctx, fromOwner)
	if source.IsEmpty() {
		return s.GetCart(ctx, toOwner), nil
	}

	merged, err := s.mutate(ctx, "merge", toOwner, "", func(cart *models.Cart) (bool, error) {
		for _, line := range source.Lines {
			addLine(cart, line.ProductID, line.Quantity)
		}
		return true, nil
	})
	if err != nil {
		return merged, err
	}

	if err := s.store.Delete(ctx, s.key(fromOwner)); err != nil {
		s.log(ctx).Error("merged guest cart could not be cleared",
			zap.String("guest_id", fromOwner), zap.String("owner_id", toOwner), zap.Error(err))
	}
	return merged, nil
}

// Summary prices the cart against the catalog.
func (s *CartService) Summary(ctx context.Context, owner string) (*models.CartSummary, error) {
	cart := s.GetCart(ctx, owner)
	summary := &models.CartSummary{
		Items:    []models.CartItem{},
		Currency: s.cfg.Currency,
	}
	if cart.IsEmpty() {
		return summary, nil
	}

	ids := make([]string, len(cart.Lines))
	for i, line := range cart.Lines {
		ids[i] = line.ProductID
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load cart products: %w", err)
	}
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, line := range cart.Lines {
		product, ok := byID[line.ProductID]
		if !ok || !product.IsActive {
			summary.Missing = append(summary.Missing, line.ProductID)
			continue
		}

		item := models.CartItem{
			ProductID: line.ProductID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  line.Quantity,
			LineTotal: roundMoney(product.Price * float64(line.Quantity)),
		}
		if s.images != nil && product.ImagePath != "" {
			item.ImageURL = s.images.PublicURL(s.cfg.ImageBucket, product.ImagePath)
		}
		summary.Items = append(summary.Items, item)
		summary.Subtotal += item.LineTotal
		summary.ItemCount += line.Quantity
	}
	summary.Subtotal = roundMoney(summary.Subtotal)
	return summary, nil
}

// mutate runs apply as one atomic read-modify-write of the owner's cart and
// writes the whole cart back.
// An error from apply aborts the write and is returned as is.
func (s *CartService) mutate(ctx context.Context, op, owner, productID string, apply func(*models.Cart) (bool, error)) (models.Cart, error) {
	if owner == "" {
		return models.Cart{}, ErrNoCartOwner
	}

	var (
		result   models.Cart
		changed  bool
		applyErr error
	)
	err := s.store.Update(ctx, s.key(owner), 0, func(current []byte, exists bool) ([]byte, error) {
		cart := models.Cart{}
		if exists {
			decoded, err := decodeCart(current)
			if err != nil {
				s.log(ctx).Warn("stored cart is corrupted, starting over", zap.String("owner_id", owner), zap.Error(err))
			} else {
				cart = decoded
			}
		}

		changed, applyErr = apply(&cart)
		if applyErr != nil {
			return nil, applyErr
		}
		result = cart
		if !changed {
			return current, nil
		}
		return json.Marshal(cart)
	})
	if applyErr != nil {
		return s.GetCart(ctx, owner), applyErr
	}
	metrics.RecordCartMutation(op, err)
	if err != nil {
		s.log(ctx).Error("cart write failed", zap.String("op", op), zap.String("owner_id", owner), zap.Error(err))
		return s.GetCart(ctx, owner), fmt.Errorf("%w: %w", ErrCartNotSaved, err)
	}

	if changed {
		quantity := 0
		if line, ok := result.Find(productID); ok {
			quantity = line.Quantity
		}
		s.publish(ctx, op, owner, productID, quantity, result.ItemCount())
	}
	return result, nil
}

func (s *CartService) publish(ctx context.Context, op, owner, productID string, quantity, itemCount int) {
	event := messaging.CartEvent{
		Type:      op,
		OwnerID:   owner,
		ProductID: productID,
		Quantity:  quantity,
		ItemCount: itemCount,
		At:        time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, messaging.TopicCartUpdated, owner, event); err != nil {
		s.log(ctx).Warn("cart event not published", zap.String("op", op), zap.Error(err))
	}
}

func (s *CartService) log(ctx context.Context) *zap.Logger {
	return observability.LoggerOr(ctx, s.logger)
}

// addLine merges quantity into the cart, capping the line at MaxLineQuantity.
func addLine(cart *models.Cart, productID string, quantity int) {
	quantity = min(quantity, MaxLineQuantity)
	for i := range cart.Lines {
		if cart.Lines[i].ProductID == productID {
			cart.Lines[i].Quantity = min(cart.Lines[i].Quantity, MaxLineQuantity-quantity) + quantity
			return
		}
	}
	cart.Lines = append(cart.Lines, models.CartLine{ProductID: productID, Quantity: quantity})
}

// decodeCart parses a stored cart, dropping lines that break the cart invariants
// and folding duplicate products together.
func decodeCart(raw []byte) (models.Cart, error) {
	var stored models.Cart
	if err := json.Unmarshal(raw, &stored); err != nil {
		return models.Cart{}, err
	}

	cart := models.Cart{}
	for _, line := range stored.Lines {
		if strings.TrimSpace(line.ProductID) == "" || line.Quantity <= 0 {
			continue
		}
		addLine(&cart, line.ProductID, line.Quantity)
	}
	return cart, nil
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
