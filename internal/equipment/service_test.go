package equipment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wavecresthq/wavecrest-backend/internal/availability"
	"github.com/wavecresthq/wavecrest-backend/pkg/db"
	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
	pkgerrors "github.com/wavecresthq/wavecrest-backend/pkg/errors"
)

func setupEquipmentTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS equipment_categories (
  id TEXT PRIMARY KEY,
  business_id TEXT NOT NULL,
  name TEXT NOT NULL,
  track_sizes INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_categories_business_name ON equipment_categories (business_id, name);`,
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
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_variants_category_label ON equipment_variants (category_id, label);`,
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

func newEquipmentService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	client := db.NewWithConn(conn)
	svc, err := NewService(NewRepository(conn), client, availability.NewLedger(conn))
	require.NoError(t, err)
	return svc
}

func TestCreateCategoryRejectsDuplicateName(t *testing.T) {
	conn := setupEquipmentTestDB(t)
	svc := newEquipmentService(t, conn)
	ctx := context.Background()
	businessID := uuid.New()

	_, err := svc.CreateCategory(ctx, businessID, CreateCategoryInput{Name: "Surfboards"})
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, businessID, CreateCategoryInput{Name: "Surfboards"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	// Same name under another tenant is fine.
	_, err = svc.CreateCategory(ctx, uuid.New(), CreateCategoryInput{Name: "Surfboards"})
	require.NoError(t, err)
}

func TestDeleteCategoryGuardedByVariants(t *testing.T) {
	conn := setupEquipmentTestDB(t)
	svc := newEquipmentService(t, conn)
	ctx := context.Background()
	businessID := uuid.New()

	category, err := svc.CreateCategory(ctx, businessID, CreateCategoryInput{Name: "Wetsuits", TrackSizes: true})
	require.NoError(t, err)

	_, err = svc.CreateVariant(ctx, businessID, CreateVariantInput{
		CategoryID:    category.ID,
		Label:         "M",
		TotalQuantity: 4,
	})
	require.NoError(t, err)

	err = svc.DeleteCategory(ctx, businessID, category.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	empty, err := svc.CreateCategory(ctx, businessID, CreateCategoryInput{Name: "Leashes"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteCategory(ctx, businessID, empty.ID))

	err = svc.DeleteCategory(ctx, businessID, empty.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestCreateVariantValidation(t *testing.T) {
	conn := setupEquipmentTestDB(t)
	svc := newEquipmentService(t, conn)
	ctx := context.Background()
	businessID := uuid.New()

	category, err := svc.CreateCategory(ctx, businessID, CreateCategoryInput{Name: "Surfboards"})
	require.NoError(t, err)

	_, err = svc.CreateVariant(ctx, businessID, CreateVariantInput{CategoryID: category.ID, Label: " ", TotalQuantity: 1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.CreateVariant(ctx, businessID, CreateVariantInput{CategoryID: category.ID, Label: "6ft", TotalQuantity: -1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.CreateVariant(ctx, businessID, CreateVariantInput{CategoryID: uuid.New(), Label: "6ft", TotalQuantity: 1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.CreateVariant(ctx, businessID, CreateVariantInput{CategoryID: category.ID, Label: "6ft", TotalQuantity: 3})
	require.NoError(t, err)

	_, err = svc.CreateVariant(ctx, businessID, CreateVariantInput{CategoryID: category.ID, Label: "6ft", TotalQuantity: 3})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestUpdateVariantFields(t *testing.T) {
	conn := setupEquipmentTestDB(t)
	svc := newEquipmentService(t, conn)
	ctx := context.Background()
	businessID := uuid.New()

	category, err := svc.CreateCategory(ctx, businessID, CreateCategoryInput{Name: "Surfboards"})
	require.NoError(t, err)
	variant, err := svc.CreateVariant(ctx, businessID, CreateVariantInput{CategoryID: category.ID, Label: "6ft", TotalQuantity: 3})
	require.NoError(t, err)

	total := 8
	threshold := 2
	inactive := false
	updated, err := svc.UpdateVariant(ctx, businessID, variant.ID, UpdateVariantInput{
		TotalQuantity:     &total,
		LowStockThreshold: &threshold,
		IsActive:          &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, updated.TotalQuantity)
	assert.Equal(t, 2, updated.LowStockThreshold)
	assert.False(t, updated.IsActive)

	_, err = svc.UpdateVariant(ctx, businessID, variant.ID, UpdateVariantInput{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.UpdateVariant(ctx, businessID, uuid.New(), UpdateVariantInput{TotalQuantity: &total})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestListVariantsIncludesAvailability(t *testing.T) {
	conn := setupEquipmentTestDB(t)
	svc := newEquipmentService(t, conn)
	ctx := context.Background()
	businessID := uuid.New()

	category, err := svc.CreateCategory(ctx, businessID, CreateCategoryInput{Name: "Surfboards"})
	require.NoError(t, err)
	variant, err := svc.CreateVariant(ctx, businessID, CreateVariantInput{CategoryID: category.ID, Label: "6ft", TotalQuantity: 5})
	require.NoError(t, err)

	start := time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)
	vid := variant.ID
	require.NoError(t, conn.Create(&models.Rental{
		BusinessID:         businessID,
		CustomerID:         uuid.New(),
		EquipmentVariantID: &vid,
		Quantity:           2,
		StartAt:            start,
		EndAt:              start.Add(time.Hour),
		Status:             enums.RentalStatusActive,
	}).Error)

	window := availability.Window{Start: start.Add(15 * time.Minute), End: start.Add(30 * time.Minute)}
	views, err := svc.ListVariants(ctx, businessID, nil, &window)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 2, views[0].Availability.InUse)
	assert.Equal(t, 3, views[0].Availability.AvailableNow)
}
