package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EquipmentVariant is one fungible pool of identical units under a category
// (e.g. "6ft softboard"). Label is unique within its category.
type EquipmentVariant struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID        uuid.UUID `gorm:"column:business_id;type:uuid;not null;index"`
	CategoryID        uuid.UUID `gorm:"column:category_id;type:uuid;not null;uniqueIndex:ux_variants_category_label"`
	Label             string    `gorm:"column:label;not null;uniqueIndex:ux_variants_category_label"`
	TotalQuantity     int       `gorm:"column:total_quantity;not null;default:0"`
	LowStockThreshold int       `gorm:"column:low_stock_threshold;not null;default:0"`
	IsActive          bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *EquipmentVariant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
