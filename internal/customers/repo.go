package customers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
)

// Repository exposes the tenant-scoped customer lookups consumed by the
// reservation flows. Customer management itself lives elsewhere.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Exists(ctx context.Context, businessID, customerID uuid.UUID) (bool, error)
	FindByID(ctx context.Context, businessID, customerID uuid.UUID) (*models.Customer, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a customer repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Exists(ctx context.Context, businessID, customerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("business_id = ? AND id = ? AND is_archived = ?", businessID, customerID, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) FindByID(ctx context.Context, businessID, customerID uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, customerID).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}
