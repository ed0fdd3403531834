package availability

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
	pkgerrors "github.com/wavecresthq/wavecrest-backend/pkg/errors"
)

// VariantAvailability is the derived read model for one variant pool.
type VariantAvailability struct {
	VariantID     uuid.UUID `json:"variantId"`
	Label         string    `json:"label"`
	TotalQuantity int       `json:"totalQuantity"`
	InUse         int       `json:"inUse"`
	AvailableNow  int       `json:"availableNow"`
	LowStock      bool      `json:"lowStock"`
}

// Ledger derives available-now figures from variant capacity and the overlap
// engine. Read-only.
type Ledger struct {
	db *gorm.DB
}

// NewLedger builds a ledger bound to the provided DB handle.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// WithTx rebinds the ledger to a transaction handle.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	if tx == nil {
		return l
	}
	return &Ledger{db: tx}
}

// Availability reports per-variant committed usage and remaining capacity for
// the window. Unknown or cross-tenant variant ids surface as a validation
// error so callers never see silent zeroes.
func (l *Ledger) Availability(ctx context.Context, businessID uuid.UUID, variantIDs []uuid.UUID, window Window) ([]VariantAvailability, error) {
	if len(variantIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one variantId is required")
	}
	if !window.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "window start must be before window end")
	}

	var variants []models.EquipmentVariant
	err := l.db.WithContext(ctx).
		Where("business_id = ? AND id IN ?", businessID, variantIDs).
		Find(&variants).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variants")
	}
	if len(variants) != len(variantIDs) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variantId not found for this business")
	}

	usage, err := InUse(ctx, l.db, businessID, variantIDs, window)
	if err != nil {
		return nil, err
	}

	out := make([]VariantAvailability, 0, len(variants))
	for _, v := range variants {
		inUse := usage[v.ID]
		available := v.TotalQuantity - inUse
		if available < 0 {
			available = 0
		}
		out = append(out, VariantAvailability{
			VariantID:     v.ID,
			Label:         v.Label,
			TotalQuantity: v.TotalQuantity,
			InUse:         inUse,
			AvailableNow:  available,
			LowStock:      available < v.LowStockThreshold,
		})
	}
	return out, nil
}
