package equipment

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an equipment repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateCategory(ctx context.Context, category *models.EquipmentCategory) (*models.EquipmentCategory, error) {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

func (r *repository) FindCategoryByID(ctx context.Context, businessID, categoryID uuid.UUID) (*models.EquipmentCategory, error) {
	var category models.EquipmentCategory
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, categoryID).
		First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repository) ListCategories(ctx context.Context, businessID uuid.UUID) ([]models.EquipmentCategory, error) {
	var categories []models.EquipmentCategory
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *repository) DeleteCategory(ctx context.Context, businessID, categoryID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, categoryID).
		Delete(&models.EquipmentCategory{}).Error
}

func (r *repository) CountVariantsInCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.EquipmentVariant{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error
	return count, err
}

func (r *repository) CreateVariant(ctx context.Context, variant *models.EquipmentVariant) (*models.EquipmentVariant, error) {
	if err := r.db.WithContext(ctx).Create(variant).Error; err != nil {
		return nil, err
	}
	return variant, nil
}

func (r *repository) FindVariantByID(ctx context.Context, businessID, variantID uuid.UUID) (*models.EquipmentVariant, error) {
	var variant models.EquipmentVariant
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, variantID).
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// FindVariantForUpdate takes a row lock on the variant so availability checks
// and capacity-consuming writes serialize per pool.
func (r *repository) FindVariantForUpdate(ctx context.Context, businessID, variantID uuid.UUID) (*models.EquipmentVariant, error) {
	var variant models.EquipmentVariant
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessID, variantID).
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *repository) ListVariants(ctx context.Context, businessID uuid.UUID, categoryID *uuid.UUID) ([]models.EquipmentVariant, error) {
	query := r.db.WithContext(ctx).Where("business_id = ?", businessID)
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}
	var variants []models.EquipmentVariant
	if err := query.Order("label ASC").Find(&variants).Error; err != nil {
		return nil, err
	}
	return variants, nil
}

func (r *repository) UpdateVariant(ctx context.Context, variantID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.EquipmentVariant{}).
		Where("id = ?", variantID).
		Updates(updates).Error
}

func (r *repository) FindUnitByID(ctx context.Context, businessID, unitID uuid.UUID) (*models.Equipment, error) {
	var unit models.Equipment
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, unitID).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) FindUnitForUpdate(ctx context.Context, businessID, unitID uuid.UUID) (*models.Equipment, error) {
	var unit models.Equipment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessID, unitID).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) UpdateUnitStatus(ctx context.Context, unitID uuid.UUID, status enums.EquipmentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Equipment{}).
		Where("id = ?", unitID).
		Update("status", status).Error
}
