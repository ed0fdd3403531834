package rentals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
	"github.com/wavecresthq/wavecrest-backend/pkg/pagination"
)

// Repository defines persistence operations for rentals.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, rental *models.Rental) (*models.Rental, error)
	FindByID(ctx context.Context, businessID, rentalID uuid.UUID) (*models.Rental, error)
	FindForUpdate(ctx context.Context, businessID, rentalID uuid.UUID) (*models.Rental, error)
	FindByBookingID(ctx context.Context, businessID, bookingID uuid.UUID) (*models.Rental, error)
	List(ctx context.Context, businessID uuid.UUID, params pagination.Params, filters ListFilters) (*RentalList, error)
	Update(ctx context.Context, rentalID uuid.UUID, updates map[string]any) error
	FindActiveEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Rental, error)
}

// ListFilters narrows rental listings.
type ListFilters struct {
	Status     *enums.RentalStatus
	CustomerID *uuid.UUID
}

// RentalList is one page of rentals plus the cursor for the next page.
type RentalList struct {
	Rentals    []models.Rental `json:"rentals"`
	NextCursor string          `json:"nextCursor,omitempty"`
}
