package rentals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wavecresthq/wavecrest-backend/internal/availability"
	"github.com/wavecresthq/wavecrest-backend/internal/equipment"
	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
	pkgerrors "github.com/wavecresthq/wavecrest-backend/pkg/errors"
	"github.com/wavecresthq/wavecrest-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the rental lifecycle after creation. Rentals are only ever
// created by the reservation coordinator; this service owns the transitions.
type Service interface {
	Get(ctx context.Context, businessID, rentalID uuid.UUID) (*models.Rental, error)
	List(ctx context.Context, businessID uuid.UUID, params pagination.Params, filters ListFilters) (*RentalList, error)
	Return(ctx context.Context, businessID, rentalID uuid.UUID) (*models.Rental, error)
	Cancel(ctx context.Context, businessID, rentalID uuid.UUID) (*models.Rental, error)
	UpdateEndAt(ctx context.Context, businessID, rentalID uuid.UUID, endAt time.Time) (*models.Rental, error)
}

type service struct {
	repo      Repository
	equipment equipment.Repository
	tx        txRunner
	now       func() time.Time
}

// NewService builds a rental service with the required dependencies.
func NewService(repo Repository, equipmentRepo equipment.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rentals repository required")
	}
	if equipmentRepo == nil {
		return nil, fmt.Errorf("equipment repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:      repo,
		equipment: equipmentRepo,
		tx:        tx,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Get(ctx context.Context, businessID, rentalID uuid.UUID) (*models.Rental, error) {
	rental, err := s.repo.FindByID(ctx, businessID, rentalID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rental not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rental")
	}
	return rental, nil
}

func (s *service) List(ctx context.Context, businessID uuid.UUID, params pagination.Params, filters ListFilters) (*RentalList, error) {
	list, err := s.repo.List(ctx, businessID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rentals")
	}
	return list, nil
}

// Return closes out a rental. The reservation window is shortened to end now
// so the capacity frees immediately, and a legacy unit flips back to
// AVAILABLE.
func (s *service) Return(ctx context.Context, businessID, rentalID uuid.UUID) (*models.Rental, error) {
	var out *models.Rental
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rental, err := repo.FindForUpdate(ctx, businessID, rentalID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "rental not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rental")
		}
		if rental.Status != enums.RentalStatusActive && rental.Status != enums.RentalStatusOverdue {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only active or overdue rentals can be returned")
		}

		now := s.now()
		// A return stamps endAt = now; before startAt that would invert the
		// window, and an unstarted rental is cancelled, not returned.
		if rental.StartAt.After(now) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "rental has not started; cancel it instead")
		}

		updates := map[string]any{
			"status":      enums.RentalStatusReturned,
			"returned_at": now,
			"end_at":      now,
		}
		if err := repo.Update(ctx, rental.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rental")
		}
		if err := s.releaseUnit(ctx, tx, rental); err != nil {
			return err
		}

		out, err = repo.FindByID(ctx, businessID, rentalID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload rental")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel voids a rental that has not started yet.
func (s *service) Cancel(ctx context.Context, businessID, rentalID uuid.UUID) (*models.Rental, error) {
	var out *models.Rental
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rental, err := repo.FindForUpdate(ctx, businessID, rentalID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "rental not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rental")
		}
		if rental.Status != enums.RentalStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only active rentals can be cancelled")
		}
		if !rental.StartAt.After(s.now()) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "rental has already started")
		}

		if err := repo.Update(ctx, rental.ID, map[string]any{"status": enums.RentalStatusCancelled}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rental")
		}
		if err := s.releaseUnit(ctx, tx, rental); err != nil {
			return err
		}

		out, err = repo.FindByID(ctx, businessID, rentalID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload rental")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateEndAt extends or shortens an open rental's window. An extension is a
// fresh capacity claim on [currentEnd, newEnd) and goes through the same
// locked re-check as rental creation.
func (s *service) UpdateEndAt(ctx context.Context, businessID, rentalID uuid.UUID, endAt time.Time) (*models.Rental, error) {
	var out *models.Rental
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rental, err := repo.FindForUpdate(ctx, businessID, rentalID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "rental not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rental")
		}
		if rental.Status != enums.RentalStatusActive && rental.Status != enums.RentalStatusOverdue {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "endAt is only editable on open rentals")
		}
		if !endAt.After(rental.StartAt) {
			return pkgerrors.New(pkgerrors.CodeValidation, "endAt must be after startAt")
		}
		if err := s.requireExtensionCapacity(ctx, tx, businessID, rental, endAt); err != nil {
			return err
		}

		if err := repo.Update(ctx, rental.ID, map[string]any{"end_at": endAt}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rental")
		}

		out, err = repo.FindByID(ctx, businessID, rentalID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload rental")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// requireExtensionCapacity locks the rental's variant pool and re-checks the
// overlap sum over [currentEnd, newEnd) before the window grows. The rental's
// own half-open window ends at currentEnd, so it never counts against its own
// extension. Shortening needs no check, and a legacy unit is held exclusively
// for the rental's whole open lifetime.
func (s *service) requireExtensionCapacity(ctx context.Context, tx *gorm.DB, businessID uuid.UUID, rental *models.Rental, endAt time.Time) error {
	if rental.EquipmentVariantID == nil || !endAt.After(rental.EndAt) {
		return nil
	}

	variant, err := s.equipment.WithTx(tx).FindVariantForUpdate(ctx, businessID, *rental.EquipmentVariantID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock variant")
	}

	window := availability.Window{Start: rental.EndAt, End: endAt}
	usage, err := availability.InUse(ctx, tx, businessID, []uuid.UUID{variant.ID}, window)
	if err != nil {
		return err
	}
	if usage[variant.ID]+rental.Quantity > variant.TotalQuantity {
		return pkgerrors.Conflictf(pkgerrors.ReasonInsufficientAvailability,
			"variant %q has %d of %d units committed over the extension", variant.Label, usage[variant.ID], variant.TotalQuantity)
	}
	return nil
}

func (s *service) releaseUnit(ctx context.Context, tx *gorm.DB, rental *models.Rental) error {
	if rental.EquipmentID == nil {
		return nil
	}
	repo := s.equipment.WithTx(tx)
	if err := repo.UpdateUnitStatus(ctx, *rental.EquipmentID, enums.EquipmentStatusAvailable); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release equipment unit")
	}
	return nil
}
