package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wavecresthq/wavecrest-backend/internal/availability"
	"github.com/wavecresthq/wavecrest-backend/internal/lessons"
	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
	pkgerrors "github.com/wavecresthq/wavecrest-backend/pkg/errors"
	"github.com/wavecresthq/wavecrest-backend/pkg/pagination"
)

const (
	// MinParticipants and MaxParticipants bound the participants field.
	MinParticipants = 1
	MaxParticipants = 100
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the booking lifecycle after creation. Bookings are only ever
// created by the reservation coordinator; this service owns the transitions
// and the BOOKED-only field edits.
type Service interface {
	Get(ctx context.Context, businessID, bookingID uuid.UUID) (*models.Booking, error)
	List(ctx context.Context, businessID uuid.UUID, params pagination.Params, filters ListFilters) (*BookingList, error)
	Complete(ctx context.Context, businessID, bookingID uuid.UUID) (*models.Booking, error)
	Cancel(ctx context.Context, businessID, bookingID uuid.UUID) (*models.Booking, error)
	MarkNoShow(ctx context.Context, businessID, bookingID uuid.UUID) (*models.Booking, error)
	Reschedule(ctx context.Context, businessID, bookingID uuid.UUID, startAt, endAt time.Time) (*models.Booking, error)
	UpdateParticipants(ctx context.Context, businessID, bookingID uuid.UUID, participants int) (*models.Booking, error)
}

type service struct {
	repo    Repository
	lessons lessons.Repository
	tx      txRunner
}

// NewService builds a booking service with the required dependencies.
func NewService(repo Repository, lessonRepo lessons.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if lessonRepo == nil {
		return nil, fmt.Errorf("lessons repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, lessons: lessonRepo, tx: tx}, nil
}

func (s *service) Get(ctx context.Context, businessID, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.repo.FindByID(ctx, businessID, bookingID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	return booking, nil
}

func (s *service) List(ctx context.Context, businessID uuid.UUID, params pagination.Params, filters ListFilters) (*BookingList, error) {
	list, err := s.repo.List(ctx, businessID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bookings")
	}
	return list, nil
}

// Complete closes out a checked-in booking. Capacity was already consumed at
// check-in, so this has no inventory effect.
func (s *service) Complete(ctx context.Context, businessID, bookingID uuid.UUID) (*models.Booking, error) {
	return s.transition(ctx, businessID, bookingID, enums.BookingStatusCheckedIn, enums.BookingStatusCompleted,
		"only checked-in bookings can be completed")
}

// Cancel voids a booking that has not been checked in. Its allocations stop
// counting against the pool the moment the status leaves BOOKED.
func (s *service) Cancel(ctx context.Context, businessID, bookingID uuid.UUID) (*models.Booking, error) {
	return s.transition(ctx, businessID, bookingID, enums.BookingStatusBooked, enums.BookingStatusCancelled,
		"only booked bookings can be cancelled")
}

// MarkNoShow records a customer no-show. Same capacity release semantics as
// Cancel.
func (s *service) MarkNoShow(ctx context.Context, businessID, bookingID uuid.UUID) (*models.Booking, error) {
	return s.transition(ctx, businessID, bookingID, enums.BookingStatusBooked, enums.BookingStatusNoShow,
		"only booked bookings can be marked no-show")
}

func (s *service) transition(ctx context.Context, businessID, bookingID uuid.UUID, from, to enums.BookingStatus, guardMessage string) (*models.Booking, error) {
	var out *models.Booking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		booking, err := repo.FindForUpdate(ctx, businessID, bookingID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if booking.Status != from {
			return pkgerrors.New(pkgerrors.CodeStateConflict, guardMessage)
		}

		if err := repo.Update(ctx, booking.ID, map[string]any{"status": to}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking")
		}

		out, err = repo.FindByID(ctx, businessID, bookingID)
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

// Reschedule moves a BOOKED booking to a new window, re-validating lesson
// capacity, instructor exclusivity and equipment availability for that window
// with the booking's own reservation excluded from the sums.
func (s *service) Reschedule(ctx context.Context, businessID, bookingID uuid.UUID, startAt, endAt time.Time) (*models.Booking, error) {
	if !startAt.Before(endAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "startAt must be before endAt")
	}

	var out *models.Booking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		booking, err := repo.FindForUpdate(ctx, businessID, bookingID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if booking.Status != enums.BookingStatusBooked {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "times are only editable while booked")
		}

		// Same lock order as booking creation: lesson, instructor, then
		// variants, so the two paths cannot deadlock each other.
		if err := s.checkLessonCapacity(ctx, tx, booking, booking.Participants, startAt, endAt); err != nil {
			return err
		}
		if err := s.checkInstructorFree(ctx, tx, repo, booking, startAt, endAt); err != nil {
			return err
		}
		if err := s.checkAllocations(ctx, tx, repo, booking, startAt, endAt); err != nil {
			return err
		}

		if err := repo.Update(ctx, booking.ID, map[string]any{"start_at": startAt, "end_at": endAt}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking")
		}

		out, err = repo.FindByID(ctx, businessID, bookingID)
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

// UpdateParticipants resizes a booking, re-validating the lesson capacity
// invariant at the booking's current window.
func (s *service) UpdateParticipants(ctx context.Context, businessID, bookingID uuid.UUID, participants int) (*models.Booking, error) {
	if participants < MinParticipants || participants > MaxParticipants {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("participants must be between %d and %d", MinParticipants, MaxParticipants))
	}

	var out *models.Booking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		booking, err := repo.FindForUpdate(ctx, businessID, bookingID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if booking.Status != enums.BookingStatusBooked {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "participants are only editable while booked")
		}

		if err := s.checkLessonCapacity(ctx, tx, booking, participants, booking.StartAt, booking.EndAt); err != nil {
			return err
		}

		if err := repo.Update(ctx, booking.ID, map[string]any{"participants": participants}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update booking")
		}

		out, err = repo.FindByID(ctx, businessID, bookingID)
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

func (s *service) checkLessonCapacity(ctx context.Context, tx *gorm.DB, booking *models.Booking, participants int, startAt, endAt time.Time) error {
	if booking.LessonID == nil {
		return nil
	}
	lesson, err := s.lessons.WithTx(tx).FindForUpdate(ctx, booking.BusinessID, *booking.LessonID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lesson")
	}
	if lesson.Capacity == nil {
		return nil
	}

	taken, err := s.repo.WithTx(tx).SumOverlappingParticipants(ctx, booking.BusinessID, lesson.ID, startAt, endAt, &booking.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum lesson participants")
	}
	if taken+participants > *lesson.Capacity {
		return pkgerrors.Conflictf(pkgerrors.ReasonLessonFull,
			"lesson capacity %d exceeded: %d already booked", *lesson.Capacity, taken)
	}
	return nil
}

func (s *service) checkInstructorFree(ctx context.Context, tx *gorm.DB, repo Repository, booking *models.Booking, startAt, endAt time.Time) error {
	if booking.InstructorID == nil {
		return nil
	}
	// Lock the instructor row so concurrent bookings against the same
	// instructor serialize before the overlap query runs.
	var instructor models.Instructor
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", booking.BusinessID, *booking.InstructorID).
		First(&instructor).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock instructor")
	}
	busy, err := repo.InstructorHasOverlap(ctx, booking.BusinessID, *booking.InstructorID, startAt, endAt, &booking.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check instructor bookings")
	}
	if busy {
		return pkgerrors.Conflictf(pkgerrors.ReasonInstructorDoubleBooked,
			"instructor already has an overlapping booking")
	}
	return nil
}

func (s *service) checkAllocations(ctx context.Context, tx *gorm.DB, repo Repository, booking *models.Booking, startAt, endAt time.Time) error {
	allocations, err := repo.FindAllocations(ctx, booking.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load allocations")
	}
	if len(allocations) == 0 {
		return nil
	}

	variantIDs := make([]uuid.UUID, len(allocations))
	for i, a := range allocations {
		variantIDs[i] = a.EquipmentVariantID
	}

	// Lock the pools before summing so a concurrent reservation against the
	// same variants cannot interleave between check and write.
	var variants []models.EquipmentVariant
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id IN ?", booking.BusinessID, variantIDs).
		Order("id").
		Find(&variants).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock variants")
	}

	window := availability.Window{Start: startAt, End: endAt}
	usage, err := availability.InUseExcludingBooking(ctx, tx, booking.BusinessID, variantIDs, window, booking.ID)
	if err != nil {
		return err
	}
	totals := make(map[uuid.UUID]int, len(variants))
	for _, v := range variants {
		totals[v.ID] = v.TotalQuantity
	}

	for _, a := range allocations {
		if usage[a.EquipmentVariantID]+a.Quantity > totals[a.EquipmentVariantID] {
			return pkgerrors.Conflictf(pkgerrors.ReasonInsufficientAvailability,
				"insufficient availability for variant %s in new window", a.EquipmentVariantID)
		}
	}
	return nil
}
