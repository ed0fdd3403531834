package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
)

// Equipment is a serialized legacy unit tracked individually rather than as
// part of a variant pool. Its status flips to RENTED while on loan.
type Equipment struct {
	ID         uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID uuid.UUID             `gorm:"column:business_id;type:uuid;not null;index"`
	Name       string                `gorm:"column:name;not null"`
	Status     enums.EquipmentStatus `gorm:"column:status;type:text;not null;default:'AVAILABLE'"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (e *Equipment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
