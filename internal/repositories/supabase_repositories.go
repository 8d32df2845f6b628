package repositories

import (
	"context"
	"errors"
	"fmt"

	"shopup-backend/internal/models"
	"shopup-backend/pkg/supabase"
)

const productColumns = "id,seller_id,name,description,category,price,currency,image_path,stock,is_active,created_at"

// Admin Repository
type supabaseAdminRepository struct {
	client *supabase.Client
}

// NewSupabaseAdminRepository needs a service-role client; admin_users is not
// readable with the anon key.
func NewSupabaseAdminRepository(client *supabase.Client) AdminRepository {
	return &supabaseAdminRepository{client: client}
}

func (r *supabaseAdminRepository) GetByUserID(ctx context.Context, userID string) (*models.AdminUser, error) {
	var admin models.AdminUser
	if err := fetchSingle(ctx, r.client.From("admin_users").Select("*").Eq("user_id", userID), &admin); err != nil {
		return nil, fmt.Errorf("admin_users: %w", err)
	}
	return &admin, nil
}

// Seller Repository
type supabaseSellerRepository struct {
	client *supabase.Client
}

func NewSupabaseSellerRepository(client *supabase.Client) SellerRepository {
	return &supabaseSellerRepository{client: client}
}

func (r *supabaseSellerRepository) GetByUserID(ctx context.Context, userID string) (*models.Seller, error) {
	var seller models.Seller
	if err := fetchSingle(ctx, r.client.From("sellers").Select("*").Eq("user_id", userID), &seller); err != nil {
		return nil, fmt.Errorf("sellers: %w", err)
	}
	return &seller, nil
}

// Product Repository
type supabaseProductRepository struct {
	client *supabase.Client
}

func NewSupabaseProductRepository(client *supabase.Client) ProductRepository {
	return &supabaseProductRepository{client: client}
}

func (r *supabaseProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := fetchSingle(ctx, r.client.From("products").Select(productColumns).Eq("id", id), &product); err != nil {
		return nil, fmt.Errorf("products: %w", err)
	}
	return &product, nil
}

func (r *supabaseProductRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}

	resp, err := r.client.From("products").Select(productColumns).In("id", values...).Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("products: %w", err)
	}
	return decodeProducts(resp)
}

func (r *supabaseProductRepository) ListActive(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	q := r.client.From("products").
		Select(productColumns).
		Eq("is_active", true).
		Order("created_at", false).
		Limit(pageSize(filter.Limit)).
		Offset(filter.Offset)
	if filter.SellerID != "" {
		q = q.Eq("seller_id", filter.SellerID)
	}
	if filter.Category != "" {
		q = q.Eq("category", filter.Category)
	}

	resp, err := q.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("products: %w", err)
	}
	return decodeProducts(resp)
}

func fetchSingle(ctx context.Context, q *supabase.QueryBuilder, out any) error {
	resp, err := q.Single().Execute(ctx)
	if err != nil {
		if errors.Is(err, supabase.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if err := resp.Decode(out); err != nil {
		if errors.Is(err, supabase.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func decodeProducts(resp *supabase.Response) ([]models.Product, error) {
	var products []models.Product
	if err := resp.Decode(&products); err != nil {
		if errors.Is(err, supabase.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}
