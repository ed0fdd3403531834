package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
)

// Rental consumes equipment capacity for a time window. It references either
// a variant pool (with a quantity) or a single legacy equipment unit.
// BookingID links rentals materialized by booking check-in.
type Rental struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID         uuid.UUID           `gorm:"column:business_id;type:uuid;not null;index"`
	CustomerID         uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	EquipmentID        *uuid.UUID          `gorm:"column:equipment_id;type:uuid"`
	EquipmentVariantID *uuid.UUID          `gorm:"column:equipment_variant_id;type:uuid;index"`
	BookingID          *uuid.UUID          `gorm:"column:booking_id;type:uuid;index"`
	Quantity           int                 `gorm:"column:quantity;not null;default:1"`
	StartAt            time.Time           `gorm:"column:start_at;not null;index"`
	EndAt              time.Time           `gorm:"column:end_at;not null;index"`
	ReturnedAt         *time.Time          `gorm:"column:returned_at"`
	Status             enums.RentalStatus  `gorm:"column:status;type:text;not null;default:'ACTIVE'"`
	PriceTotal         decimal.NullDecimal `gorm:"column:price_total;type:numeric(10,2)"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Rental) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
