package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wavecresthq/wavecrest-backend/internal/lessons"
	"github.com/wavecresthq/wavecrest-backend/pkg/db"
	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
	pkgerrors "github.com/wavecresthq/wavecrest-backend/pkg/errors"
)

func setupBookingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS lessons (
  id TEXT PRIMARY KEY,
  business_id TEXT NOT NULL,
  title TEXT NOT NULL,
  capacity INTEGER,
  duration_minutes INTEGER NOT NULL DEFAULT 60,
  price NUMERIC NOT NULL DEFAULT 0,
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
		`CREATE TABLE IF NOT EXISTS instructors (
  id TEXT PRIMARY KEY,
  business_id TEXT NOT NULL,
  full_name TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
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
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newBookingService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	client := db.NewWithConn(conn)
	svc, err := NewService(NewRepository(conn), lessons.NewRepository(conn), client)
	require.NoError(t, err)
	return svc
}

func bookingAt(hour int) (time.Time, time.Time) {
	start := time.Date(2026, time.July, 4, hour, 0, 0, 0, time.UTC)
	return start, start.Add(time.Hour)
}

func seedBooking(t *testing.T, conn *gorm.DB, businessID uuid.UUID, status enums.BookingStatus, startHour int) *models.Booking {
	t.Helper()

	start, end := bookingAt(startHour)
	booking := &models.Booking{
		BusinessID:   businessID,
		CustomerID:   uuid.New(),
		Participants: 1,
		StartAt:      start,
		EndAt:        end,
		Status:       status,
	}
	require.NoError(t, conn.Create(booking).Error)
	return booking
}

func TestBookingTransitions(t *testing.T) {
	conn := setupBookingsTestDB(t)
	svc := newBookingService(t, conn)
	ctx := context.Background()
	businessID := uuid.New()

	booked := seedBooking(t, conn, businessID, enums.BookingStatusBooked, 9)
	cancelled, err := svc.Cancel(ctx, businessID, booked.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BookingStatusCancelled, cancelled.Status)

	// Terminal states never move again.
	_, err = svc.Cancel(ctx, businessID, booked.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
	_, err = svc.Complete(ctx, businessID, booked.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))

	checkedIn := seedBooking(t, conn, businessID, enums.BookingStatusCheckedIn, 11)
	completed, err := svc.Complete(ctx, businessID, checkedIn.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BookingStatusCompleted, completed.Status)

	// Completing from BOOKED skips CHECKED_IN and is rejected.
	fresh := seedBooking(t, conn, businessID, enums.BookingStatusBooked, 13)
	_, err = svc.Complete(ctx, businessID, fresh.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))

	noShow, err := svc.MarkNoShow(ctx, businessID, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BookingStatusNoShow, noShow.Status)
}

func TestUpdateParticipantsEnforcesLessonCapacity(t *testing.T) {
	conn := setupBookingsTestDB(t)
	svc := newBookingService(t, conn)
	ctx := context.Background()
	businessID := uuid.New()

	capacity := 4
	lesson := &models.Lesson{
		BusinessID:      businessID,
		Title:           "Beginner surf",
		Capacity:        &capacity,
		DurationMinutes: 60,
	}
	require.NoError(t, conn.Create(lesson).Error)

	start, end := bookingAt(9)
	other := &models.Booking{
		BusinessID:   businessID,
		CustomerID:   uuid.New(),
		LessonID:     &lesson.ID,
		Participants: 2,
		StartAt:      start,
		EndAt:        end,
		Status:       enums.BookingStatusBooked,
	}
	require.NoError(t, conn.Create(other).Error)

	mine := &models.Booking{
		BusinessID:   businessID,
		CustomerID:   uuid.New(),
		LessonID:     &lesson.ID,
		Participants: 1,
		StartAt:      start,
		EndAt:        end,
		Status:       enums.BookingStatusBooked,
	}
	require.NoError(t, conn.Create(mine).Error)

	updated, err := svc.UpdateParticipants(ctx, businessID, mine.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Participants)

	_, err = svc.UpdateParticipants(ctx, businessID, mine.ID, 3)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
	assert.Equal(t, pkgerrors.ReasonLessonFull, pkgerrors.Reason(err))

	_, err = svc.UpdateParticipants(ctx, businessID, mine.ID, 0)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	_, err = svc.UpdateParticipants(ctx, businessID, mine.ID, 101)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestRescheduleGuards(t *testing.T) {
	conn := setupBookingsTestDB(t)
	svc := newBookingService(t, conn)
	ctx := context.Background()
	businessID := uuid.New()

	booking := seedBooking(t, conn, businessID, enums.BookingStatusBooked, 9)

	newStart, newEnd := bookingAt(14)
	moved, err := svc.Reschedule(ctx, businessID, booking.ID, newStart, newEnd)
	require.NoError(t, err)
	assert.WithinDuration(t, newStart, moved.StartAt, time.Second)
	assert.WithinDuration(t, newEnd, moved.EndAt, time.Second)

	_, err = svc.Reschedule(ctx, businessID, booking.ID, newEnd, newStart)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	checkedIn := seedBooking(t, conn, businessID, enums.BookingStatusCheckedIn, 11)
	_, err = svc.Reschedule(ctx, businessID, checkedIn.ID, newStart, newEnd)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
}

func TestRescheduleRechecksInstructorOverlap(t *testing.T) {
	conn := setupBookingsTestDB(t)
	svc := newBookingService(t, conn)
	ctx := context.Background()
	businessID := uuid.New()

	instructor := &models.Instructor{BusinessID: businessID, FullName: "Leilani Kahale", IsActive: true}
	require.NoError(t, conn.Create(instructor).Error)
	instructorID := instructor.ID

	blockStart, blockEnd := bookingAt(10)
	blocker := &models.Booking{
		BusinessID:   businessID,
		CustomerID:   uuid.New(),
		InstructorID: &instructorID,
		Participants: 1,
		StartAt:      blockStart,
		EndAt:        blockEnd,
		Status:       enums.BookingStatusBooked,
	}
	require.NoError(t, conn.Create(blocker).Error)

	start, end := bookingAt(15)
	mine := &models.Booking{
		BusinessID:   businessID,
		CustomerID:   uuid.New(),
		InstructorID: &instructorID,
		Participants: 1,
		StartAt:      start,
		EndAt:        end,
		Status:       enums.BookingStatusBooked,
	}
	require.NoError(t, conn.Create(mine).Error)

	_, err := svc.Reschedule(ctx, businessID, mine.ID, blockStart.Add(30*time.Minute), blockEnd.Add(30*time.Minute))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ReasonInstructorDoubleBooked, pkgerrors.Reason(err))

	// Touching windows do not overlap.
	_, err = svc.Reschedule(ctx, businessID, mine.ID, blockEnd, blockEnd.Add(time.Hour))
	require.NoError(t, err)
}

func TestRescheduleRechecksEquipmentAvailability(t *testing.T) {
	conn := setupBookingsTestDB(t)
	svc := newBookingService(t, conn)
	ctx := context.Background()
	businessID := uuid.New()

	variant := &models.EquipmentVariant{
		BusinessID:    businessID,
		CategoryID:    uuid.New(),
		Label:         "6ft",
		TotalQuantity: 2,
	}
	require.NoError(t, conn.Create(variant).Error)

	busyStart, busyEnd := bookingAt(10)
	vid := variant.ID
	require.NoError(t, conn.Create(&models.Rental{
		BusinessID:         businessID,
		CustomerID:         uuid.New(),
		EquipmentVariantID: &vid,
		Quantity:           2,
		StartAt:            busyStart,
		EndAt:              busyEnd,
		Status:             enums.RentalStatusActive,
	}).Error)

	mine := seedBooking(t, conn, businessID, enums.BookingStatusBooked, 15)
	require.NoError(t, conn.Create(&models.BookingEquipmentAllocation{
		BookingID:          mine.ID,
		EquipmentVariantID: variant.ID,
		Quantity:           1,
	}).Error)

	_, err := svc.Reschedule(ctx, businessID, mine.ID, busyStart, busyEnd)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ReasonInsufficientAvailability, pkgerrors.Reason(err))

	// A free window is accepted; the booking's own allocation is not counted
	// against itself.
	freeStart, freeEnd := bookingAt(17)
	_, err = svc.Reschedule(ctx, businessID, mine.ID, freeStart, freeEnd)
	require.NoError(t, err)
}
