package reservations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wavecresthq/wavecrest-backend/internal/availability"
	"github.com/wavecresthq/wavecrest-backend/internal/bookings"
	"github.com/wavecresthq/wavecrest-backend/internal/customers"
	"github.com/wavecresthq/wavecrest-backend/internal/equipment"
	"github.com/wavecresthq/wavecrest-backend/internal/instructors"
	"github.com/wavecresthq/wavecrest-backend/internal/lessons"
	"github.com/wavecresthq/wavecrest-backend/internal/payments"
	"github.com/wavecresthq/wavecrest-backend/internal/rentals"
	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
	pkgerrors "github.com/wavecresthq/wavecrest-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the reservation coordinator. Every operation is one atomic unit
// of work: referential validation, row locks on the contended pools, overlap
// re-check under those locks, then the capacity-consuming writes and the
// state transition. Any failed check aborts the whole transaction.
type Service interface {
	CreateVariantRental(ctx context.Context, businessID uuid.UUID, input CreateVariantRentalInput) (*models.Rental, error)
	CreateUnitRental(ctx context.Context, businessID uuid.UUID, input CreateUnitRentalInput) (*models.Rental, error)
	CheckInBooking(ctx context.Context, businessID, bookingID uuid.UUID, input CheckInInput) (*models.Booking, error)
	CreateLessonBooking(ctx context.Context, businessID uuid.UUID, input CreateLessonBookingInput) (*models.Booking, error)
}

type service struct {
	rentals     rentals.Repository
	bookings    bookings.Repository
	equipment   equipment.Repository
	customers   customers.Repository
	instructors instructors.Repository
	lessons     lessons.Repository
	payments    payments.Repository
	tx          txRunner
	now         func() time.Time
}

// NewService builds the reservation coordinator with the required
// dependencies.
func NewService(
	rentalRepo rentals.Repository,
	bookingRepo bookings.Repository,
	equipmentRepo equipment.Repository,
	customerRepo customers.Repository,
	instructorRepo instructors.Repository,
	lessonRepo lessons.Repository,
	paymentRepo payments.Repository,
	tx txRunner,
) (Service, error) {
	if rentalRepo == nil || bookingRepo == nil || equipmentRepo == nil {
		return nil, fmt.Errorf("rental, booking and equipment repositories required")
	}
	if customerRepo == nil || instructorRepo == nil || lessonRepo == nil {
		return nil, fmt.Errorf("customer, instructor and lesson lookups required")
	}
	if paymentRepo == nil {
		return nil, fmt.Errorf("payment sink required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		rentals:     rentalRepo,
		bookings:    bookingRepo,
		equipment:   equipmentRepo,
		customers:   customerRepo,
		instructors: instructorRepo,
		lessons:     lessonRepo,
		payments:    paymentRepo,
		tx:          tx,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateVariantRental reserves quantity units from a variant pool for the
// window and records the payment in the same transaction.
func (s *service) CreateVariantRental(ctx context.Context, businessID uuid.UUID, input CreateVariantRentalInput) (*models.Rental, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if err := validateWindow(input.StartAt, input.EndAt); err != nil {
		return nil, err
	}
	if err := validatePayment(input.PriceTotal, input.PaymentMethod); err != nil {
		return nil, err
	}
	if err := s.requireCustomer(ctx, businessID, input.CustomerID); err != nil {
		return nil, err
	}

	var out *models.Rental
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		equipmentRepo := s.equipment.WithTx(tx)

		variant, err := equipmentRepo.FindVariantForUpdate(ctx, businessID, input.VariantID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeValidation, "variantId not found for this business")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
		}
		if !variant.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "variant is not active")
		}

		window := availability.Window{Start: input.StartAt, End: input.EndAt}
		if err := s.requireVariantCapacity(ctx, tx, businessID, variant, input.Quantity, window, nil); err != nil {
			return err
		}

		rental := &models.Rental{
			BusinessID:         businessID,
			CustomerID:         input.CustomerID,
			EquipmentVariantID: &variant.ID,
			Quantity:           input.Quantity,
			StartAt:            input.StartAt,
			EndAt:              input.EndAt,
			Status:             enums.RentalStatusActive,
			PriceTotal:         nullDecimal(input.PriceTotal),
		}
		out, err = s.rentals.WithTx(tx).Create(ctx, rental)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rental")
		}

		return s.recordPayment(ctx, tx, businessID, &out.ID, nil, input.PriceTotal, input.PaymentMethod)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUnitRental reserves one legacy serialized unit. The unit must be
// AVAILABLE and flips to RENTED in the same transaction.
func (s *service) CreateUnitRental(ctx context.Context, businessID uuid.UUID, input CreateUnitRentalInput) (*models.Rental, error) {
	if err := validateWindow(input.StartAt, input.EndAt); err != nil {
		return nil, err
	}
	if err := validatePayment(input.PriceTotal, input.PaymentMethod); err != nil {
		return nil, err
	}
	if err := s.requireCustomer(ctx, businessID, input.CustomerID); err != nil {
		return nil, err
	}

	var out *models.Rental
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		equipmentRepo := s.equipment.WithTx(tx)

		unit, err := equipmentRepo.FindUnitForUpdate(ctx, businessID, input.EquipmentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeValidation, "equipmentId not found for this business")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load equipment unit")
		}
		if unit.Status != enums.EquipmentStatusAvailable {
			return pkgerrors.Conflictf(pkgerrors.ReasonInsufficientAvailability,
				"equipment unit is not available")
		}

		rental := &models.Rental{
			BusinessID:  businessID,
			CustomerID:  input.CustomerID,
			EquipmentID: &unit.ID,
			Quantity:    1,
			StartAt:     input.StartAt,
			EndAt:       input.EndAt,
			Status:      enums.RentalStatusActive,
			PriceTotal:  nullDecimal(input.PriceTotal),
		}
		out, err = s.rentals.WithTx(tx).Create(ctx, rental)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rental")
		}

		if err := equipmentRepo.UpdateUnitStatus(ctx, unit.ID, enums.EquipmentStatusRented); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark unit rented")
		}

		return s.recordPayment(ctx, tx, businessID, &out.ID, nil, input.PriceTotal, input.PaymentMethod)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CheckInBooking converts a booked reservation into consuming rentals for
// [now, booking.endAt) and flips the booking to CHECKED_IN. With a category
// the coordinator picks a variant from that category's pools; otherwise it
// materializes the booking's existing allocations, which are consumed (and
// removed) so capacity is never counted twice.
func (s *service) CheckInBooking(ctx context.Context, businessID, bookingID uuid.UUID, input CheckInInput) (*models.Booking, error) {
	if input.CategoryID != nil && input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var out *models.Booking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		bookingRepo := s.bookings.WithTx(tx)
		rentalRepo := s.rentals.WithTx(tx)

		booking, err := bookingRepo.FindForUpdate(ctx, businessID, bookingID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeValidation, "bookingId not found for this business")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if booking.Status != enums.BookingStatusBooked {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only booked bookings can be checked in")
		}
		if _, err := rentalRepo.FindByBookingID(ctx, businessID, booking.ID); err == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking already has a rental")
		} else if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check linked rentals")
		}

		now := s.now()
		if !now.Before(booking.EndAt) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking window has already ended")
		}
		window := availability.Window{Start: now, End: booking.EndAt}

		if input.CategoryID != nil {
			err = s.checkInFromCategory(ctx, tx, booking, *input.CategoryID, input.Quantity, window)
		} else {
			err = s.checkInFromAllocations(ctx, tx, booking, window)
		}
		if err != nil {
			return err
		}

		if err := bookingRepo.Update(ctx, booking.ID, map[string]any{"status": enums.BookingStatusCheckedIn}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking status")
		}

		out, err = bookingRepo.FindByID(ctx, businessID, bookingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload booking")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) checkInFromCategory(ctx context.Context, tx *gorm.DB, booking *models.Booking, categoryID uuid.UUID, quantity int, window availability.Window) error {
	equipmentRepo := s.equipment.WithTx(tx)

	if _, err := equipmentRepo.FindCategoryByID(ctx, booking.BusinessID, categoryID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeValidation, "equipmentCategoryId not found for this business")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}

	candidates, err := equipmentRepo.ListVariants(ctx, booking.BusinessID, &categoryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list category variants")
	}

	for _, candidate := range candidates {
		if !candidate.IsActive {
			continue
		}
		variant, err := equipmentRepo.FindVariantForUpdate(ctx, booking.BusinessID, candidate.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock variant")
		}
		if err := s.requireVariantCapacity(ctx, tx, booking.BusinessID, variant, quantity, window, &booking.ID); err != nil {
			if pkgerrors.Reason(err) == pkgerrors.ReasonInsufficientAvailability {
				continue
			}
			return err
		}

		rental := &models.Rental{
			BusinessID:         booking.BusinessID,
			CustomerID:         booking.CustomerID,
			EquipmentVariantID: &variant.ID,
			BookingID:          &booking.ID,
			Quantity:           quantity,
			StartAt:            window.Start,
			EndAt:              window.End,
			Status:             enums.RentalStatusActive,
		}
		if _, err := s.rentals.WithTx(tx).Create(ctx, rental); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rental")
		}
		return nil
	}

	return pkgerrors.Conflictf(pkgerrors.ReasonInsufficientAvailability,
		"no variant in category has %d units free", quantity)
}

func (s *service) checkInFromAllocations(ctx context.Context, tx *gorm.DB, booking *models.Booking, window availability.Window) error {
	bookingRepo := s.bookings.WithTx(tx)
	equipmentRepo := s.equipment.WithTx(tx)

	allocations, err := bookingRepo.FindAllocations(ctx, booking.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load allocations")
	}
	if len(allocations) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "booking has no equipment allocations; provide equipmentCategoryId")
	}

	for _, allocation := range allocations {
		variant, err := equipmentRepo.FindVariantForUpdate(ctx, booking.BusinessID, allocation.EquipmentVariantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock variant")
		}
		// The booking's own allocations are excluded from the sum: they are
		// being converted, not stacked.
		if err := s.requireVariantCapacity(ctx, tx, booking.BusinessID, variant, allocation.Quantity, window, &booking.ID); err != nil {
			return err
		}

		rental := &models.Rental{
			BusinessID:         booking.BusinessID,
			CustomerID:         booking.CustomerID,
			EquipmentVariantID: &variant.ID,
			BookingID:          &booking.ID,
			Quantity:           allocation.Quantity,
			StartAt:            window.Start,
			EndAt:              window.End,
			Status:             enums.RentalStatusActive,
		}
		if _, err := s.rentals.WithTx(tx).Create(ctx, rental); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rental")
		}
	}

	if err := tx.WithContext(ctx).
		Where("booking_id = ?", booking.ID).
		Delete(&models.BookingEquipmentAllocation{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume allocations")
	}
	return nil
}

// CreateLessonBooking reserves a lesson slot, an instructor and at least two
// equipment allocations under one set of locks.
func (s *service) CreateLessonBooking(ctx context.Context, businessID uuid.UUID, input CreateLessonBookingInput) (*models.Booking, error) {
	if input.Participants < bookings.MinParticipants || input.Participants > bookings.MaxParticipants {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("participants must be between %d and %d", bookings.MinParticipants, bookings.MaxParticipants))
	}
	if err := validateWindow(input.StartAt, input.EndAt); err != nil {
		return nil, err
	}
	if err := validatePayment(input.PriceTotal, input.PaymentMethod); err != nil {
		return nil, err
	}
	if input.InstructorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "instructorId is required for lesson bookings")
	}
	if len(input.Allocations) < 2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lesson bookings require at least two equipment allocations")
	}
	seen := make(map[uuid.UUID]bool, len(input.Allocations))
	for _, allocation := range input.Allocations {
		if allocation.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation quantity must be at least 1")
		}
		if seen[allocation.VariantID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate variantId in allocations")
		}
		seen[allocation.VariantID] = true
	}

	if err := s.requireCustomer(ctx, businessID, input.CustomerID); err != nil {
		return nil, err
	}

	window := availability.Window{Start: input.StartAt, End: input.EndAt}
	quantities := make(map[uuid.UUID]int, len(input.Allocations))
	for _, allocation := range input.Allocations {
		quantities[allocation.VariantID] = allocation.Quantity
	}

	var out *models.Booking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		bookingRepo := s.bookings.WithTx(tx)
		equipmentRepo := s.equipment.WithTx(tx)

		// Every contended row is locked before any check, in a stable order:
		// lesson, instructor, then pools sorted by id.
		lesson, err := s.lessons.WithTx(tx).FindForUpdate(ctx, businessID, input.LessonID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeValidation, "lessonId not found for this business")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock lesson")
		}
		instructor, err := s.instructors.WithTx(tx).FindForUpdate(ctx, businessID, input.InstructorID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeValidation, "instructorId not found for this business")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock instructor")
		}
		if !instructor.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "instructorId not found for this business")
		}

		locked := make([]*models.EquipmentVariant, 0, len(input.Allocations))
		for _, variantID := range sortedVariantIDs(input.Allocations) {
			variant, err := equipmentRepo.FindVariantForUpdate(ctx, businessID, variantID)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeValidation, "variantId not found for this business")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock variant")
			}
			if !variant.IsActive {
				return pkgerrors.New(pkgerrors.CodeValidation, "variant is not active")
			}
			locked = append(locked, variant)
		}

		if lesson.Capacity != nil {
			taken, err := bookingRepo.SumOverlappingParticipants(ctx, businessID, lesson.ID, input.StartAt, input.EndAt, nil)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum lesson participants")
			}
			if taken+input.Participants > *lesson.Capacity {
				return pkgerrors.Conflictf(pkgerrors.ReasonLessonFull,
					"lesson capacity %d exceeded: %d already booked", *lesson.Capacity, taken)
			}
		}

		busy, err := bookingRepo.InstructorHasOverlap(ctx, businessID, input.InstructorID, input.StartAt, input.EndAt, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check instructor bookings")
		}
		if busy {
			return pkgerrors.Conflictf(pkgerrors.ReasonInstructorDoubleBooked,
				"instructor already has an overlapping booking")
		}

		for _, variant := range locked {
			if err := s.requireVariantCapacity(ctx, tx, businessID, variant, quantities[variant.ID], window, nil); err != nil {
				return err
			}
		}

		booking := &models.Booking{
			BusinessID:   businessID,
			CustomerID:   input.CustomerID,
			LessonID:     &lesson.ID,
			InstructorID: &input.InstructorID,
			Participants: input.Participants,
			StartAt:      input.StartAt,
			EndAt:        input.EndAt,
			Status:       enums.BookingStatusBooked,
		}
		if _, err := bookingRepo.Create(ctx, booking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create booking")
		}

		allocations := make([]models.BookingEquipmentAllocation, len(input.Allocations))
		for i, allocation := range input.Allocations {
			allocations[i] = models.BookingEquipmentAllocation{
				BookingID:          booking.ID,
				EquipmentVariantID: allocation.VariantID,
				Quantity:           allocation.Quantity,
			}
		}
		if err := bookingRepo.CreateAllocations(ctx, allocations); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create allocations")
		}

		if err := s.recordPayment(ctx, tx, businessID, nil, &booking.ID, input.PriceTotal, input.PaymentMethod); err != nil {
			return err
		}

		out, err = bookingRepo.FindByID(ctx, businessID, booking.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload booking")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) requireCustomer(ctx context.Context, businessID, customerID uuid.UUID) error {
	ok, err := s.customers.Exists(ctx, businessID, customerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check customer")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "customerId not found for this business")
	}
	return nil
}

// requireVariantCapacity re-runs the overlap check under the caller's locks.
func (s *service) requireVariantCapacity(ctx context.Context, tx *gorm.DB, businessID uuid.UUID, variant *models.EquipmentVariant, quantity int, window availability.Window, excludeBookingID *uuid.UUID) error {
	var usage map[uuid.UUID]int
	var err error
	if excludeBookingID != nil {
		usage, err = availability.InUseExcludingBooking(ctx, tx, businessID, []uuid.UUID{variant.ID}, window, *excludeBookingID)
	} else {
		usage, err = availability.InUse(ctx, tx, businessID, []uuid.UUID{variant.ID}, window)
	}
	if err != nil {
		return err
	}
	if usage[variant.ID]+quantity > variant.TotalQuantity {
		return pkgerrors.Conflictf(pkgerrors.ReasonInsufficientAvailability,
			"variant %q has %d of %d units committed", variant.Label, usage[variant.ID], variant.TotalQuantity)
	}
	return nil
}

func (s *service) recordPayment(ctx context.Context, tx *gorm.DB, businessID uuid.UUID, rentalID, bookingID *uuid.UUID, price *decimal.Decimal, method *enums.PaymentMethod) error {
	if price == nil || method == nil {
		return nil
	}
	payment := &models.Payment{
		BusinessID: businessID,
		RentalID:   rentalID,
		BookingID:  bookingID,
		Amount:     *price,
		Method:     *method,
	}
	if _, err := s.payments.WithTx(tx).Create(ctx, payment); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
	}
	return nil
}

func nullDecimal(value *decimal.Decimal) decimal.NullDecimal {
	if value == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *value, Valid: true}
}
