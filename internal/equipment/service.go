package equipment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wavecresthq/wavecrest-backend/internal/availability"
	"github.com/wavecresthq/wavecrest-backend/pkg/db"
	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
	pkgerrors "github.com/wavecresthq/wavecrest-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the equipment management operations.
type Service interface {
	CreateCategory(ctx context.Context, businessID uuid.UUID, input CreateCategoryInput) (*models.EquipmentCategory, error)
	ListCategories(ctx context.Context, businessID uuid.UUID) ([]models.EquipmentCategory, error)
	DeleteCategory(ctx context.Context, businessID, categoryID uuid.UUID) error
	CreateVariant(ctx context.Context, businessID uuid.UUID, input CreateVariantInput) (*models.EquipmentVariant, error)
	UpdateVariant(ctx context.Context, businessID, variantID uuid.UUID, input UpdateVariantInput) (*models.EquipmentVariant, error)
	ListVariants(ctx context.Context, businessID uuid.UUID, categoryID *uuid.UUID, window *availability.Window) ([]VariantView, error)
}

// CreateCategoryInput carries the fields for a new category.
type CreateCategoryInput struct {
	Name       string
	TrackSizes bool
}

// CreateVariantInput carries the fields for a new variant pool.
type CreateVariantInput struct {
	CategoryID        uuid.UUID
	Label             string
	TotalQuantity     int
	LowStockThreshold int
}

// UpdateVariantInput carries optional variant mutations; nil fields are left
// untouched.
type UpdateVariantInput struct {
	Label             *string
	TotalQuantity     *int
	LowStockThreshold *int
	IsActive          *bool
}

// VariantView is a variant joined with its derived availability figures.
type VariantView struct {
	Variant      models.EquipmentVariant          `json:"variant"`
	Availability availability.VariantAvailability `json:"availability"`
}

type service struct {
	repo   Repository
	tx     txRunner
	ledger *availability.Ledger
}

// NewService builds an equipment service with the required dependencies.
func NewService(repo Repository, tx txRunner, ledger *availability.Ledger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("equipment repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("availability ledger required")
	}
	return &service{repo: repo, tx: tx, ledger: ledger}, nil
}

func (s *service) CreateCategory(ctx context.Context, businessID uuid.UUID, input CreateCategoryInput) (*models.EquipmentCategory, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}

	category := &models.EquipmentCategory{
		BusinessID: businessID,
		Name:       name,
		TrackSizes: input.TrackSizes,
	}
	created, err := s.repo.CreateCategory(ctx, category)
	if err != nil {
		if db.IsUniqueViolation(err, "ux_categories_business_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category name already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	return created, nil
}

func (s *service) ListCategories(ctx context.Context, businessID uuid.UUID) ([]models.EquipmentCategory, error) {
	categories, err := s.repo.ListCategories(ctx, businessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return categories, nil
}

// DeleteCategory removes an empty category. Categories still owning variants
// cannot be deleted.
func (s *service) DeleteCategory(ctx context.Context, businessID, categoryID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindCategoryByID(ctx, businessID, categoryID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}

		count, err := repo.CountVariantsInCategory(ctx, categoryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count category variants")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "category still owns variants")
		}

		if err := repo.DeleteCategory(ctx, businessID, categoryID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
		}
		return nil
	})
}

func (s *service) CreateVariant(ctx context.Context, businessID uuid.UUID, input CreateVariantInput) (*models.EquipmentVariant, error) {
	label := strings.TrimSpace(input.Label)
	if label == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant label is required")
	}
	if input.TotalQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "totalQuantity must be zero or greater")
	}
	if input.LowStockThreshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lowStockThreshold must be zero or greater")
	}

	if _, err := s.repo.FindCategoryByID(ctx, businessID, input.CategoryID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "categoryId not found for this business")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}

	variant := &models.EquipmentVariant{
		BusinessID:        businessID,
		CategoryID:        input.CategoryID,
		Label:             label,
		TotalQuantity:     input.TotalQuantity,
		LowStockThreshold: input.LowStockThreshold,
		IsActive:          true,
	}
	created, err := s.repo.CreateVariant(ctx, variant)
	if err != nil {
		if db.IsUniqueViolation(err, "ux_variants_category_label") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "variant label already in use within category")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create variant")
	}
	return created, nil
}

func (s *service) UpdateVariant(ctx context.Context, businessID, variantID uuid.UUID, input UpdateVariantInput) (*models.EquipmentVariant, error) {
	updates := map[string]any{}
	if input.Label != nil {
		label := strings.TrimSpace(*input.Label)
		if label == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant label cannot be empty")
		}
		updates["label"] = label
	}
	if input.TotalQuantity != nil {
		if *input.TotalQuantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "totalQuantity must be zero or greater")
		}
		updates["total_quantity"] = *input.TotalQuantity
	}
	if input.LowStockThreshold != nil {
		if *input.LowStockThreshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "lowStockThreshold must be zero or greater")
		}
		updates["low_stock_threshold"] = *input.LowStockThreshold
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no variant fields to update")
	}

	var updated *models.EquipmentVariant
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		variant, err := repo.FindVariantForUpdate(ctx, businessID, variantID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
		}

		if err := repo.UpdateVariant(ctx, variant.ID, updates); err != nil {
			if db.IsUniqueViolation(err, "ux_variants_category_label") {
				return pkgerrors.New(pkgerrors.CodeConflict, "variant label already in use within category")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update variant")
		}

		updated, err = repo.FindVariantByID(ctx, businessID, variantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload variant")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListVariants returns variant pools joined with their availability for the
// requested window. A nil window means "right now".
func (s *service) ListVariants(ctx context.Context, businessID uuid.UUID, categoryID *uuid.UUID, window *availability.Window) ([]VariantView, error) {
	variants, err := s.repo.ListVariants(ctx, businessID, categoryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list variants")
	}
	if len(variants) == 0 {
		return []VariantView{}, nil
	}

	win := instantWindow(time.Now().UTC())
	if window != nil {
		win = *window
	}

	ids := make([]uuid.UUID, len(variants))
	for i, v := range variants {
		ids[i] = v.ID
	}
	figures, err := s.ledger.Availability(ctx, businessID, ids, win)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]availability.VariantAvailability, len(figures))
	for _, f := range figures {
		byID[f.VariantID] = f
	}

	views := make([]VariantView, len(variants))
	for i, v := range variants {
		views[i] = VariantView{Variant: v, Availability: byID[v.ID]}
	}
	return views, nil
}

func instantWindow(now time.Time) availability.Window {
	return availability.Window{Start: now, End: now.Add(time.Nanosecond)}
}
