package rentals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wavecresthq/wavecrest-backend/internal/equipment"
	"github.com/wavecresthq/wavecrest-backend/pkg/db"
	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
	pkgerrors "github.com/wavecresthq/wavecrest-backend/pkg/errors"
	"github.com/wavecresthq/wavecrest-backend/pkg/pagination"
)

func setupRentalsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS rentals (
  id TEXT PRIMARY KEY,
  business_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  equipment_id TEXT,
  equipment_variant_id TEXT,
  booking_id TEXT,
  quantity INTEGER NOT NULL DEFAULT 1,
  start_at DATETIME NOT NULL,
  end_at DATETIME NOT NULL,
  returned_at DATETIME,
  status TEXT NOT NULL DEFAULT 'ACTIVE',
  price_total NUMERIC,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS equipment (
  id TEXT PRIMARY KEY,
  business_id TEXT NOT NULL,
  name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'AVAILABLE',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS equipment_variants (
  id TEXT PRIMARY KEY,
  business_id TEXT NOT NULL,
  category_id TEXT NOT NULL,
  label TEXT NOT NULL,
  total_quantity INTEGER NOT NULL DEFAULT 0,
  low_stock_threshold INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS bookings (
  id TEXT PRIMARY KEY,
  business_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  lesson_id TEXT,
  instructor_id TEXT,
  participants INTEGER NOT NULL DEFAULT 1,
  start_at DATETIME NOT NULL,
  end_at DATETIME NOT NULL,
  status TEXT NOT NULL DEFAULT 'BOOKED',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS booking_equipment_allocations (
  id TEXT PRIMARY KEY,
  booking_id TEXT NOT NULL,
  equipment_variant_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newRentalService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	client := db.NewWithConn(conn)
	svc, err := NewService(NewRepository(conn), equipment.NewRepository(conn), client)
	require.NoError(t, err)
	return svc
}

func seedVariant(t *testing.T, conn *gorm.DB, businessID uuid.UUID, total int) *models.EquipmentVariant {
	t.Helper()

	variant := &models.EquipmentVariant{
		BusinessID:    businessID,
		CategoryID:    uuid.New(),
		Label:         "7ft softboard",
		TotalQuantity: total,
		IsActive:      true,
	}
	require.NoError(t, conn.Create(variant).Error)
	return variant
}

func seedRental(t *testing.T, conn *gorm.DB, businessID uuid.UUID, status enums.RentalStatus, start, end time.Time) *models.Rental {
	t.Helper()

	variant := seedVariant(t, conn, businessID, 3)
	return seedVariantRental(t, conn, businessID, variant.ID, 1, status, start, end)
}

func seedVariantRental(t *testing.T, conn *gorm.DB, businessID, variantID uuid.UUID, quantity int, status enums.RentalStatus, start, end time.Time) *models.Rental {
	t.Helper()

	rental := &models.Rental{
		BusinessID:         businessID,
		CustomerID:         uuid.New(),
		EquipmentVariantID: &variantID,
		Quantity:           quantity,
		StartAt:            start,
		EndAt:              end,
		Status:             status,
	}
	require.NoError(t, conn.Create(rental).Error)
	return rental
}

func TestReturnStampsWindowAndStatus(t *testing.T) {
	conn := setupRentalsTestDB(t)
	svc := newRentalService(t, conn)
	ctx := context.Background()
	businessID := uuid.New()

	start := time.Now().UTC().Add(-2 * time.Hour)
	rental := seedRental(t, conn, businessID, enums.RentalStatusActive, start, start.Add(6*time.Hour))

	returned, err := svc.Return(ctx, businessID, rental.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RentalStatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnedAt)
	// The window is shortened so capacity frees immediately.
	assert.WithinDuration(t, time.Now().UTC(), returned.EndAt, 5*time.Second)
	assert.WithinDuration(t, returned.EndAt, *returned.ReturnedAt, time.Second)

	_, err = svc.Return(ctx, businessID, rental.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
}

func TestReturnReleasesLegacyUnit(t *testing.T) {
	conn := setupRentalsTestDB(t)
	svc := newRentalService(t, conn)
	ctx := context.Background()
	businessID := uuid.New()

	unit := &models.Equipment{
		BusinessID: businessID,
		Name:       "board #7",
		Status:     enums.EquipmentStatusRented,
	}
	require.NoError(t, conn.Create(unit).Error)

	start := time.Now().UTC().Add(-time.Hour)
	rental := &models.Rental{
		BusinessID:  businessID,
		CustomerID:  uuid.New(),
		EquipmentID: &unit.ID,
		Quantity:    1,
		StartAt:     start,
		EndAt:       start.Add(4 * time.Hour),
		Status:      enums.RentalStatusActive,
	}
	require.NoError(t, conn.Create(rental).Error)

	_, err := svc.Return(ctx, businessID, rental.ID)
	require.NoError(t, err)

	var reloaded models.Equipment
	require.NoError(t, conn.First(&reloaded, "id = ?", unit.ID).Error)
	assert.Equal(t, enums.EquipmentStatusAvailable, reloaded.Status)
}

func TestCancelOnlyBeforeStart(t *testing.T) {
	conn := setupRentalsTestDB(t)
	svc := newRentalService(t, conn)
	ctx := context.Background()
	businessID := uuid.New()

	future := time.Now().UTC().Add(2 * time.Hour)
	upcoming := seedRental(t, conn, businessID, enums.RentalStatusActive, future, future.Add(time.Hour))

	cancelled, err := svc.Cancel(ctx, businessID, upcoming.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RentalStatusCancelled, cancelled.Status)

	started := seedRental(t, conn, businessID, enums.RentalStatusActive, time.Now().UTC().Add(-time.Hour), future)
	_, err = svc.Cancel(ctx, businessID, started.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))

	overdue := seedRental(t, conn, businessID, enums.RentalStatusOverdue, future, future.Add(time.Hour))
	_, err = svc.Cancel(ctx, businessID, overdue.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
}

func TestUpdateEndAtGuards(t *testing.T) {
	conn := setupRentalsTestDB(t)
	svc := newRentalService(t, conn)
	ctx := context.Background()
	businessID := uuid.New()

	start := time.Now().UTC().Add(time.Hour)
	rental := seedRental(t, conn, businessID, enums.RentalStatusActive, start, start.Add(time.Hour))

	updated, err := svc.UpdateEndAt(ctx, businessID, rental.ID, start.Add(3*time.Hour))
	require.NoError(t, err)
	assert.WithinDuration(t, start.Add(3*time.Hour), updated.EndAt, time.Second)

	_, err = svc.UpdateEndAt(ctx, businessID, rental.ID, start.Add(-time.Minute))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	returned := seedRental(t, conn, businessID, enums.RentalStatusReturned, start, start.Add(time.Hour))
	_, err = svc.UpdateEndAt(ctx, businessID, returned.ID, start.Add(2*time.Hour))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
}

func TestUpdateEndAtRechecksAvailability(t *testing.T) {
	conn := setupRentalsTestDB(t)
	svc := newRentalService(t, conn)
	ctx := context.Background()
	businessID := uuid.New()

	variant := seedVariant(t, conn, businessID, 1)
	day := time.Date(2026, time.July, 10, 0, 0, 0, 0, time.UTC)
	mine := seedVariantRental(t, conn, businessID, variant.ID, 1, enums.RentalStatusActive,
		day.Add(10*time.Hour), day.Add(11*time.Hour))
	blocker := seedVariantRental(t, conn, businessID, variant.ID, 1, enums.RentalStatusActive,
		day.Add(11*time.Hour), day.Add(12*time.Hour))

	// Both rentals fit back to back, but extending the first into the
	// second's window would put 2 units in play against a pool of 1.
	_, err := svc.UpdateEndAt(ctx, businessID, mine.ID, day.Add(12*time.Hour))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
	assert.Equal(t, pkgerrors.ReasonInsufficientAvailability, pkgerrors.Reason(err))

	var reloaded models.Rental
	require.NoError(t, conn.First(&reloaded, "id = ?", mine.ID).Error)
	assert.WithinDuration(t, day.Add(11*time.Hour), reloaded.EndAt, time.Second)

	// Shortening never needs capacity.
	shortened, err := svc.UpdateEndAt(ctx, businessID, mine.ID, day.Add(10*time.Hour+30*time.Minute))
	require.NoError(t, err)
	assert.WithinDuration(t, day.Add(10*time.Hour+30*time.Minute), shortened.EndAt, time.Second)

	// Once the blocking rental is out of play the extension goes through.
	require.NoError(t, conn.Model(&models.Rental{}).
		Where("id = ?", blocker.ID).
		Update("status", enums.RentalStatusCancelled).Error)
	extended, err := svc.UpdateEndAt(ctx, businessID, mine.ID, day.Add(12*time.Hour))
	require.NoError(t, err)
	assert.WithinDuration(t, day.Add(12*time.Hour), extended.EndAt, time.Second)
}

func TestReturnRejectsUnstartedRental(t *testing.T) {
	conn := setupRentalsTestDB(t)
	svc := newRentalService(t, conn)
	ctx := context.Background()
	businessID := uuid.New()

	future := time.Now().UTC().Add(3 * time.Hour)
	rental := seedRental(t, conn, businessID, enums.RentalStatusActive, future, future.Add(time.Hour))

	_, err := svc.Return(ctx, businessID, rental.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))

	// The rental is untouched and still cancellable.
	cancelled, err := svc.Cancel(ctx, businessID, rental.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RentalStatusCancelled, cancelled.Status)
}

func TestGetIsTenantScoped(t *testing.T) {
	conn := setupRentalsTestDB(t)
	svc := newRentalService(t, conn)
	ctx := context.Background()
	businessID := uuid.New()

	start := time.Now().UTC()
	rental := seedRental(t, conn, businessID, enums.RentalStatusActive, start, start.Add(time.Hour))

	found, err := svc.Get(ctx, businessID, rental.ID)
	require.NoError(t, err)
	assert.Equal(t, rental.ID, found.ID)

	_, err = svc.Get(ctx, uuid.New(), rental.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestListFiltersAndPaginates(t *testing.T) {
	conn := setupRentalsTestDB(t)
	svc := newRentalService(t, conn)
	ctx := context.Background()
	businessID := uuid.New()
	customerID := uuid.New()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		vid := uuid.New()
		rental := &models.Rental{
			BusinessID:         businessID,
			CustomerID:         customerID,
			EquipmentVariantID: &vid,
			Quantity:           1,
			StartAt:            base,
			EndAt:              base.Add(time.Hour),
			Status:             enums.RentalStatusActive,
			CreatedAt:          base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, conn.Create(rental).Error)
	}
	seedRental(t, conn, businessID, enums.RentalStatusReturned, base, base.Add(time.Hour))

	status := enums.RentalStatusActive
	page, err := svc.List(ctx, businessID, pagination.Params{Limit: 2}, ListFilters{Status: &status, CustomerID: &customerID})
	require.NoError(t, err)
	assert.Len(t, page.Rentals, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.List(ctx, businessID, pagination.Params{Limit: 2, Cursor: page.NextCursor}, ListFilters{Status: &status, CustomerID: &customerID})
	require.NoError(t, err)
	assert.Len(t, rest.Rentals, 1)
	assert.Empty(t, rest.NextCursor)
}
