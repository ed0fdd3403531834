package reservations

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
	pkgerrors "github.com/wavecresthq/wavecrest-backend/pkg/errors"
)

// CreateVariantRentalInput carries the fields for a pool-backed rental.
type CreateVariantRentalInput struct {
	CustomerID    uuid.UUID
	VariantID     uuid.UUID
	Quantity      int
	StartAt       time.Time
	EndAt         time.Time
	PriceTotal    *decimal.Decimal
	PaymentMethod *enums.PaymentMethod
}

// CreateUnitRentalInput carries the fields for a legacy single-unit rental.
type CreateUnitRentalInput struct {
	CustomerID    uuid.UUID
	EquipmentID   uuid.UUID
	StartAt       time.Time
	EndAt         time.Time
	PriceTotal    *decimal.Decimal
	PaymentMethod *enums.PaymentMethod
}

// CheckInInput selects how a booking's check-in consumes capacity. With a
// CategoryID the coordinator picks a variant from that category; without one
// it materializes the booking's existing allocations.
type CheckInInput struct {
	CategoryID *uuid.UUID
	Quantity   int
}

// AllocationInput is one requested variant reservation on a lesson booking.
type AllocationInput struct {
	VariantID uuid.UUID
	Quantity  int
}

// CreateLessonBookingInput carries the fields for a lesson booking.
type CreateLessonBookingInput struct {
	CustomerID    uuid.UUID
	LessonID      uuid.UUID
	InstructorID  uuid.UUID
	Participants  int
	StartAt       time.Time
	EndAt         time.Time
	Allocations   []AllocationInput
	PriceTotal    *decimal.Decimal
	PaymentMethod *enums.PaymentMethod
}

func validateWindow(startAt, endAt time.Time) error {
	if startAt.IsZero() || endAt.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "startAt and endAt are required")
	}
	if !startAt.Before(endAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "startAt must be before endAt")
	}
	return nil
}

func validatePayment(price *decimal.Decimal, method *enums.PaymentMethod) error {
	if (price == nil) != (method == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "priceTotal and paymentMethod must be provided together")
	}
	if price != nil && price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "priceTotal cannot be negative")
	}
	if method != nil && !method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "paymentMethod is invalid")
	}
	return nil
}

// sortedVariantIDs returns the distinct variant ids in a stable order so
// concurrent transactions always lock pools in the same sequence.
func sortedVariantIDs(allocations []AllocationInput) []uuid.UUID {
	ids := make([]uuid.UUID, len(allocations))
	for i, a := range allocations {
		ids[i] = a.VariantID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
