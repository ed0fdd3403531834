package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
)

// Booking reserves a lesson slot (and, via allocations, equipment capacity)
// for a customer over a time window.
type Booking struct {
	ID           uuid.UUID                    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID   uuid.UUID                    `gorm:"column:business_id;type:uuid;not null;index"`
	CustomerID   uuid.UUID                    `gorm:"column:customer_id;type:uuid;not null;index"`
	LessonID     *uuid.UUID                   `gorm:"column:lesson_id;type:uuid;index"`
	InstructorID *uuid.UUID                   `gorm:"column:instructor_id;type:uuid;index"`
	Participants int                          `gorm:"column:participants;not null;default:1"`
	StartAt      time.Time                    `gorm:"column:start_at;not null;index"`
	EndAt        time.Time                    `gorm:"column:end_at;not null;index"`
	Status       enums.BookingStatus          `gorm:"column:status;type:text;not null;default:'BOOKED'"`
	Allocations  []BookingEquipmentAllocation `gorm:"foreignKey:BookingID"`
	CreatedAt    time.Time                    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time                    `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
