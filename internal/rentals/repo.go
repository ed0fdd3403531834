package rentals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
	"github.com/wavecresthq/wavecrest-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a rentals repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, rental *models.Rental) (*models.Rental, error) {
	if err := r.db.WithContext(ctx).Create(rental).Error; err != nil {
		return nil, err
	}
	return rental, nil
}

func (r *repository) FindByID(ctx context.Context, businessID, rentalID uuid.UUID) (*models.Rental, error) {
	var rental models.Rental
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, rentalID).
		First(&rental).Error
	if err != nil {
		return nil, err
	}
	return &rental, nil
}

func (r *repository) FindForUpdate(ctx context.Context, businessID, rentalID uuid.UUID) (*models.Rental, error) {
	var rental models.Rental
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessID, rentalID).
		First(&rental).Error
	if err != nil {
		return nil, err
	}
	return &rental, nil
}

func (r *repository) FindByBookingID(ctx context.Context, businessID, bookingID uuid.UUID) (*models.Rental, error) {
	var rental models.Rental
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND booking_id = ?", businessID, bookingID).
		First(&rental).Error
	if err != nil {
		return nil, err
	}
	return &rental, nil
}

func (r *repository) List(ctx context.Context, businessID uuid.UUID, params pagination.Params, filters ListFilters) (*RentalList, error) {
	limit := pagination.LimitWithBuffer(params.Limit)

	query := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if filters.Status != nil {
		query = query.Where("status = ?", filters.Status.String())
	}
	if filters.CustomerID != nil {
		query = query.Where("customer_id = ?", *filters.CustomerID)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Rental
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	list := &RentalList{Rentals: rows}
	pageSize := pagination.NormalizeLimit(params.Limit)
	if len(rows) > pageSize {
		list.Rentals = rows[:pageSize]
		last := list.Rentals[pageSize-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nil
}

func (r *repository) Update(ctx context.Context, rentalID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Rental{}).
		Where("id = ?", rentalID).
		Updates(updates).Error
}

// FindActiveEndedBefore returns ACTIVE rentals across all businesses whose
// window ended before the cutoff, ordered so the sweep processes tenants in
// stable batches.
func (r *repository) FindActiveEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Rental, error) {
	var rows []models.Rental
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_at <= ?", enums.RentalStatusActive.String(), cutoff).
		Order("business_id ASC, end_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
