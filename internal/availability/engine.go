package availability

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
	pkgerrors "github.com/wavecresthq/wavecrest-backend/pkg/errors"
)

// Interval is one committed reservation against a variant pool.
type Interval struct {
	Start    time.Time
	End      time.Time
	Quantity int
}

// InUse returns the peak concurrent committed quantity per variant over the
// given window. Committed sources are rentals in an active status and booking
// allocations whose booking is in an active status, each filtered by the
// half-open overlap test. Pure read; runs on whatever handle it is given so
// callers can invoke it inside a locked transaction.
func InUse(ctx context.Context, db *gorm.DB, businessID uuid.UUID, variantIDs []uuid.UUID, window Window) (map[uuid.UUID]int, error) {
	return inUse(ctx, db, businessID, variantIDs, window, nil)
}

// InUseExcludingBooking behaves like InUse but ignores the allocations of one
// booking, so reschedules can re-validate a window without counting the
// booking's own reservation against itself.
func InUseExcludingBooking(ctx context.Context, db *gorm.DB, businessID uuid.UUID, variantIDs []uuid.UUID, window Window, excludeBookingID uuid.UUID) (map[uuid.UUID]int, error) {
	return inUse(ctx, db, businessID, variantIDs, window, &excludeBookingID)
}

func inUse(ctx context.Context, db *gorm.DB, businessID uuid.UUID, variantIDs []uuid.UUID, window Window, excludeBookingID *uuid.UUID) (map[uuid.UUID]int, error) {
	usage := make(map[uuid.UUID]int, len(variantIDs))
	for _, id := range variantIDs {
		usage[id] = 0
	}
	if len(variantIDs) == 0 {
		return usage, nil
	}
	if !window.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "window start must be before window end")
	}

	intervals, err := committedIntervals(ctx, db, businessID, variantIDs, window, excludeBookingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load committed reservations")
	}

	for variantID, set := range intervals {
		usage[variantID] = PeakUsage(set, window)
	}
	return usage, nil
}

type committedRow struct {
	EquipmentVariantID uuid.UUID `gorm:"column:equipment_variant_id"`
	Quantity           int       `gorm:"column:quantity"`
	StartAt            time.Time `gorm:"column:start_at"`
	EndAt              time.Time `gorm:"column:end_at"`
}

func committedIntervals(ctx context.Context, db *gorm.DB, businessID uuid.UUID, variantIDs []uuid.UUID, window Window, excludeBookingID *uuid.UUID) (map[uuid.UUID][]Interval, error) {
	rentalQuery := db.WithContext(ctx).
		Table("rentals").
		Select("equipment_variant_id, quantity, start_at, end_at").
		Where("business_id = ?", businessID).
		Where("equipment_variant_id IN ?", variantIDs).
		Where("status IN ?", statusStrings(enums.ActiveRentalStatuses)).
		Where("start_at < ? AND end_at > ?", window.End, window.Start)
	if excludeBookingID != nil {
		rentalQuery = rentalQuery.Where("(booking_id IS NULL OR booking_id <> ?)", *excludeBookingID)
	}
	var rentalRows []committedRow
	if err := rentalQuery.Find(&rentalRows).Error; err != nil {
		return nil, err
	}

	allocationQuery := db.WithContext(ctx).
		Table("booking_equipment_allocations").
		Select("booking_equipment_allocations.equipment_variant_id, booking_equipment_allocations.quantity, bookings.start_at, bookings.end_at").
		Joins("JOIN bookings ON bookings.id = booking_equipment_allocations.booking_id").
		Where("bookings.business_id = ?", businessID).
		Where("booking_equipment_allocations.equipment_variant_id IN ?", variantIDs).
		Where("bookings.status IN ?", bookingStatusStrings(enums.ActiveBookingStatuses)).
		Where("bookings.start_at < ? AND bookings.end_at > ?", window.End, window.Start)
	if excludeBookingID != nil {
		allocationQuery = allocationQuery.Where("bookings.id <> ?", *excludeBookingID)
	}
	var allocationRows []committedRow
	if err := allocationQuery.Find(&allocationRows).Error; err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID][]Interval)
	for _, row := range rentalRows {
		out[row.EquipmentVariantID] = append(out[row.EquipmentVariantID], Interval{Start: row.StartAt, End: row.EndAt, Quantity: row.Quantity})
	}
	for _, row := range allocationRows {
		out[row.EquipmentVariantID] = append(out[row.EquipmentVariantID], Interval{Start: row.StartAt, End: row.EndAt, Quantity: row.Quantity})
	}
	return out, nil
}

type sweepEvent struct {
	at    time.Time
	delta int
}

// PeakUsage computes the maximum simultaneous demand over the window using an
// endpoint sweep. Intervals are clamped to the window first; at a shared
// instant releases are applied before acquisitions so touching reservations
// never stack.
func PeakUsage(intervals []Interval, window Window) int {
	events := make([]sweepEvent, 0, len(intervals)*2)
	for _, iv := range intervals {
		clamped := Window{Start: iv.Start, End: iv.End}.Clamp(window)
		if !clamped.Valid() || iv.Quantity <= 0 {
			continue
		}
		events = append(events, sweepEvent{at: clamped.Start, delta: iv.Quantity})
		events = append(events, sweepEvent{at: clamped.End, delta: -iv.Quantity})
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].at.Equal(events[j].at) {
			return events[i].delta < events[j].delta
		}
		return events[i].at.Before(events[j].at)
	})

	var current, peak int
	for _, ev := range events {
		current += ev.delta
		if current > peak {
			peak = current
		}
	}
	return peak
}

func statusStrings(statuses []enums.RentalStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = s.String()
	}
	return out
}

func bookingStatusStrings(statuses []enums.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = s.String()
	}
	return out
}
