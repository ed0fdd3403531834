package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookingEquipmentAllocation reserves variant capacity for the lifetime of
// its booking while the booking is BOOKED or CHECKED_IN. It is "reserved,
// not yet consumed as a rental".
type BookingEquipmentAllocation struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID          uuid.UUID `gorm:"column:booking_id;type:uuid;not null;index"`
	EquipmentVariantID uuid.UUID `gorm:"column:equipment_variant_id;type:uuid;not null;index"`
	Quantity           int       `gorm:"column:quantity;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (a *BookingEquipmentAllocation) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
