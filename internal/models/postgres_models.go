package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, j)
}

// Admin roles allowed into the admin area.
const (
	AdminRoleAdmin     = "admin"
	AdminRoleModerator = "moderator"
)

// Seller verification statuses.
const (
	SellerStatusDraft    = "draft"
	SellerStatusPending  = "pending"
	SellerStatusApproved = "approved"
	SellerStatusRejected = "rejected"
)

// AdminUser is a row of admin_users. One row per auth user at most.
type AdminUser struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Role      string    `gorm:"not null" json:"role"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AdminUser) TableName() string { return "admin_users" }

// Seller is a row of sellers.
type Seller struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	BusinessName string    `json:"business_name"`
	Status       string    `gorm:"default:'draft'" json:"status"`
	Region       string    `json:"region,omitempty"`
	Metadata     JSONB     `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Seller) TableName() string { return "sellers" }

// RoleRecord is the role/status row the session guard compares against a policy.
// Value is the admin role or the seller status.
type RoleRecord struct {
	UserID string `json:"user_id"`
	Value  string `json:"value"`
	Active bool   `json:"active"`
}

func (a *AdminUser) RoleRecord() *RoleRecord {
	return &RoleRecord{UserID: a.UserID.String(), Value: a.Role, Active: a.IsActive}
}

// Sellers have no activation flag; an existing row is active.
func (s *Seller) RoleRecord() *RoleRecord {
	return &RoleRecord{UserID: s.UserID.String(), Value: s.Status, Active: true}
}
