package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
	"github.com/wavecresthq/wavecrest-backend/pkg/pagination"
)

// Repository defines persistence operations for bookings and their equipment
// allocations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, booking *models.Booking) (*models.Booking, error)
	CreateAllocations(ctx context.Context, allocations []models.BookingEquipmentAllocation) error
	FindByID(ctx context.Context, businessID, bookingID uuid.UUID) (*models.Booking, error)
	FindForUpdate(ctx context.Context, businessID, bookingID uuid.UUID) (*models.Booking, error)
	FindAllocations(ctx context.Context, bookingID uuid.UUID) ([]models.BookingEquipmentAllocation, error)
	List(ctx context.Context, businessID uuid.UUID, params pagination.Params, filters ListFilters) (*BookingList, error)
	Update(ctx context.Context, bookingID uuid.UUID, updates map[string]any) error

	// SumOverlappingParticipants totals participants over active bookings of
	// the lesson whose windows overlap [start, end), excluding one booking id
	// when provided.
	SumOverlappingParticipants(ctx context.Context, businessID, lessonID uuid.UUID, start, end time.Time, excludeBookingID *uuid.UUID) (int, error)

	// InstructorHasOverlap reports whether the instructor already holds an
	// active booking overlapping [start, end).
	InstructorHasOverlap(ctx context.Context, businessID, instructorID uuid.UUID, start, end time.Time, excludeBookingID *uuid.UUID) (bool, error)
}

// ListFilters narrows booking listings.
type ListFilters struct {
	Status     *enums.BookingStatus
	CustomerID *uuid.UUID
	LessonID   *uuid.UUID
}

// BookingList is one page of bookings plus the cursor for the next page.
type BookingList struct {
	Bookings   []models.Booking `json:"bookings"`
	NextCursor string           `json:"nextCursor,omitempty"`
}
