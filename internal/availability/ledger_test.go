package availability

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/wavecresthq/wavecrest-backend/pkg/errors"
	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
)

func TestAvailabilityRoundTrip(t *testing.T) {
	db := setupAvailabilityTestDB(t)
	ctx := context.Background()
	businessID := uuid.New()
	variant := newTestVariant(t, db, businessID, 5)
	ledger := NewLedger(db)

	newTestRental(t, db, businessID, variant.ID, 2, at(10, 0), at(11, 0), enums.RentalStatusActive)

	inside, err := ledger.Availability(ctx, businessID, []uuid.UUID{variant.ID}, Window{Start: at(10, 30), End: at(10, 45)})
	require.NoError(t, err)
	require.Len(t, inside, 1)
	assert.Equal(t, 2, inside[0].InUse)
	assert.Equal(t, 3, inside[0].AvailableNow)

	disjoint, err := ledger.Availability(ctx, businessID, []uuid.UUID{variant.ID}, Window{Start: at(12, 0), End: at(13, 0)})
	require.NoError(t, err)
	require.Len(t, disjoint, 1)
	assert.Equal(t, 0, disjoint[0].InUse)
	assert.Equal(t, 5, disjoint[0].AvailableNow)
}

func TestAvailabilityLowStockFlag(t *testing.T) {
	db := setupAvailabilityTestDB(t)
	ctx := context.Background()
	businessID := uuid.New()
	variant := newTestVariant(t, db, businessID, 4)
	variant.LowStockThreshold = 2
	require.NoError(t, db.Save(variant).Error)
	ledger := NewLedger(db)

	newTestRental(t, db, businessID, variant.ID, 3, at(10, 0), at(11, 0), enums.RentalStatusActive)

	out, err := ledger.Availability(ctx, businessID, []uuid.UUID{variant.ID}, Window{Start: at(10, 0), End: at(11, 0)})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].AvailableNow)
	assert.True(t, out[0].LowStock)
}

func TestAvailabilityNeverNegative(t *testing.T) {
	db := setupAvailabilityTestDB(t)
	ctx := context.Background()
	businessID := uuid.New()
	variant := newTestVariant(t, db, businessID, 1)
	ledger := NewLedger(db)

	newTestRental(t, db, businessID, variant.ID, 3, at(10, 0), at(11, 0), enums.RentalStatusActive)

	out, err := ledger.Availability(ctx, businessID, []uuid.UUID{variant.ID}, Window{Start: at(10, 0), End: at(11, 0)})
	require.NoError(t, err)
	assert.Equal(t, 0, out[0].AvailableNow)
}

func TestAvailabilityRejectsUnknownVariant(t *testing.T) {
	db := setupAvailabilityTestDB(t)
	ledger := NewLedger(db)

	_, err := ledger.Availability(context.Background(), uuid.New(), []uuid.UUID{uuid.New()}, Window{Start: at(10, 0), End: at(11, 0)})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}
