package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shopup-backend/internal/models"
)

type adminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) GetByUserID(ctx context.Context, userID string) (*models.AdminUser, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrNotFound
	}

	var admin models.AdminUser
	err = r.db.WithContext(ctx).Where("user_id = ?", id).First(&admin).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &admin, nil
}

type sellerRepository struct {
	db *gorm.DB
}

func NewSellerRepository(db *gorm.DB) SellerRepository {
	return &sellerRepository{db: db}
}

func (r *sellerRepository) GetByUserID(ctx context.Context, userID string) (*models.Seller, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrNotFound
	}

	var seller models.Seller
	err = r.db.WithContext(ctx).Where("user_id = ?", id).First(&seller).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	return &seller, nil
}

func translateGormError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
