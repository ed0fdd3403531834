package lessons

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
)

// Repository exposes the lesson lookups consumed by booking creation. Only
// capacity, duration and price are read here, always under a row lock so
// concurrent capacity checks against the same lesson serialize.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindForUpdate(ctx context.Context, businessID, lessonID uuid.UUID) (*models.Lesson, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a lesson repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindForUpdate(ctx context.Context, businessID, lessonID uuid.UUID) (*models.Lesson, error) {
	var lesson models.Lesson
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessID, lessonID).
		First(&lesson).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}
