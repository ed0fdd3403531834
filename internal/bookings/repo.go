package bookings

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

// NewRepository builds a bookings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	if err := r.db.WithContext(ctx).Create(booking).Error; err != nil {
		return nil, err
	}
	return booking, nil
}

func (r *repository) CreateAllocations(ctx context.Context, allocations []models.BookingEquipmentAllocation) error {
	if len(allocations) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&allocations).Error
}

func (r *repository) FindByID(ctx context.Context, businessID, bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Allocations").
		Where("business_id = ? AND id = ?", businessID, bookingID).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) FindForUpdate(ctx context.Context, businessID, bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessID, bookingID).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) FindAllocations(ctx context.Context, bookingID uuid.UUID) ([]models.BookingEquipmentAllocation, error) {
	var allocations []models.BookingEquipmentAllocation
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&allocations).Error
	if err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *repository) List(ctx context.Context, businessID uuid.UUID, params pagination.Params, filters ListFilters) (*BookingList, error) {
	limit := pagination.LimitWithBuffer(params.Limit)

	query := r.db.WithContext(ctx).
		Preload("Allocations").
		Where("business_id = ?", businessID).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if filters.Status != nil {
		query = query.Where("status = ?", filters.Status.String())
	}
	if filters.CustomerID != nil {
		query = query.Where("customer_id = ?", *filters.CustomerID)
	}
	if filters.LessonID != nil {
		query = query.Where("lesson_id = ?", *filters.LessonID)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Booking
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	list := &BookingList{Bookings: rows}
	pageSize := pagination.NormalizeLimit(params.Limit)
	if len(rows) > pageSize {
		list.Bookings = rows[:pageSize]
		last := list.Bookings[pageSize-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nil
}

func (r *repository) Update(ctx context.Context, bookingID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Updates(updates).Error
}

func (r *repository) SumOverlappingParticipants(ctx context.Context, businessID, lessonID uuid.UUID, start, end time.Time, excludeBookingID *uuid.UUID) (int, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("business_id = ? AND lesson_id = ?", businessID, lessonID).
		Where("status IN ?", activeBookingStatusStrings()).
		Where("start_at < ? AND end_at > ?", end, start)
	if excludeBookingID != nil {
		query = query.Where("id <> ?", *excludeBookingID)
	}

	var total *int
	if err := query.Select("SUM(participants)").Scan(&total).Error; err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *repository) InstructorHasOverlap(ctx context.Context, businessID, instructorID uuid.UUID, start, end time.Time, excludeBookingID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("business_id = ? AND instructor_id = ?", businessID, instructorID).
		Where("status IN ?", activeBookingStatusStrings()).
		Where("start_at < ? AND end_at > ?", end, start)
	if excludeBookingID != nil {
		query = query.Where("id <> ?", *excludeBookingID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func activeBookingStatusStrings() []string {
	out := make([]string, len(enums.ActiveBookingStatuses))
	for i, s := range enums.ActiveBookingStatuses {
		out[i] = s.String()
	}
	return out
}
