package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EquipmentCategory groups variants (e.g. "Softboards", "Wetsuits").
// Name is unique per business.
type EquipmentCategory struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID uuid.UUID          `gorm:"column:business_id;type:uuid;not null;uniqueIndex:ux_categories_business_name"`
	Name       string             `gorm:"column:name;not null;uniqueIndex:ux_categories_business_name"`
	TrackSizes bool               `gorm:"column:track_sizes;not null;default:false"`
	Variants   []EquipmentVariant `gorm:"foreignKey:CategoryID"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *EquipmentCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
