package equipment

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
)

// Repository defines persistence operations for the equipment tables:
// categories, fungible variant pools and the legacy serialized units.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateCategory(ctx context.Context, category *models.EquipmentCategory) (*models.EquipmentCategory, error)
	FindCategoryByID(ctx context.Context, businessID, categoryID uuid.UUID) (*models.EquipmentCategory, error)
	ListCategories(ctx context.Context, businessID uuid.UUID) ([]models.EquipmentCategory, error)
	DeleteCategory(ctx context.Context, businessID, categoryID uuid.UUID) error
	CountVariantsInCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)

	CreateVariant(ctx context.Context, variant *models.EquipmentVariant) (*models.EquipmentVariant, error)
	FindVariantByID(ctx context.Context, businessID, variantID uuid.UUID) (*models.EquipmentVariant, error)
	FindVariantForUpdate(ctx context.Context, businessID, variantID uuid.UUID) (*models.EquipmentVariant, error)
	ListVariants(ctx context.Context, businessID uuid.UUID, categoryID *uuid.UUID) ([]models.EquipmentVariant, error)
	UpdateVariant(ctx context.Context, variantID uuid.UUID, updates map[string]any) error

	FindUnitByID(ctx context.Context, businessID, unitID uuid.UUID) (*models.Equipment, error)
	FindUnitForUpdate(ctx context.Context, businessID, unitID uuid.UUID) (*models.Equipment, error)
	UpdateUnitStatus(ctx context.Context, unitID uuid.UUID, status enums.EquipmentStatus) error
}
