package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Lesson is a bookable lesson product. Capacity is nil for uncapped lessons.
type Lesson struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID      uuid.UUID       `gorm:"column:business_id;type:uuid;not null;index"`
	Title           string          `gorm:"column:title;not null"`
	Capacity        *int            `gorm:"column:capacity"`
	DurationMinutes int             `gorm:"column:duration_minutes;not null"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
