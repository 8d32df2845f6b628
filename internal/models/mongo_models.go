package models

import "time"

// DefaultCurrency is the storefront currency (Ghanaian cedi).
const DefaultCurrency = "GHS"

// Product is a catalog entry. The same shape is read from the products table and
// from the Mongo catalog replica.
type Product struct {
	ID          string    `bson:"_id" json:"id"`
	SellerID    string    `bson:"seller_id" json:"seller_id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Category    string    `bson:"category,omitempty" json:"category,omitempty"`
	Price       float64   `bson:"price" json:"price"`
	Currency    string    `bson:"currency,omitempty" json:"currency,omitempty"`
	ImagePath   string    `bson:"image_path,omitempty" json:"image_path,omitempty"`
	ImageURL    string    `bson:"-" json:"image_url,omitempty"`
	Stock       int       `bson:"stock" json:"stock"`
	IsActive    bool      `bson:"is_active" json:"is_active"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// ProductFilter narrows ListActive.
type ProductFilter struct {
	SellerID string
	Category string
	Limit    int
	Offset   int
}
