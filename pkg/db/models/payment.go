package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
)

// Payment records a completed charge against a rental or a booking. Exactly
// one of RentalID/BookingID is set.
type Payment struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID uuid.UUID           `gorm:"column:business_id;type:uuid;not null;index"`
	RentalID   *uuid.UUID          `gorm:"column:rental_id;type:uuid;index"`
	BookingID  *uuid.UUID          `gorm:"column:booking_id;type:uuid;index"`
	Amount     decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null"`
	Method     enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
