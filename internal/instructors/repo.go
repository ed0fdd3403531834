package instructors

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
)

// Repository exposes instructor lookups. Instructors matter to this core only
// for double-booking exclusion, so the single read takes a row lock: two
// bookings contending for the same instructor must serialize on it.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindForUpdate(ctx context.Context, businessID, instructorID uuid.UUID) (*models.Instructor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an instructor repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindForUpdate(ctx context.Context, businessID, instructorID uuid.UUID) (*models.Instructor, error) {
	var instructor models.Instructor
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessID, instructorID).
		First(&instructor).Error
	if err != nil {
		return nil, err
	}
	return &instructor, nil
}
