package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/wavecresthq/wavecrest-backend/internal/rentals"
	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
	"github.com/wavecresthq/wavecrest-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type overdueRentalReader interface {
	FindActiveEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Rental, error)
}

type lockedRentalRepo interface {
	FindForUpdate(ctx context.Context, businessID, rentalID uuid.UUID) (*models.Rental, error)
	Update(ctx context.Context, rentalID uuid.UUID, updates map[string]any) error
}

type lockedRentalRepoFactory func(tx *gorm.DB) lockedRentalRepo

func defaultLockedRentalRepo(tx *gorm.DB) lockedRentalRepo {
	return rentals.NewRepository(tx)
}

// RentalOverdueJobParams configure the overdue-rental sweep.
type RentalOverdueJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Reader      overdueRentalReader
	RepoFactory lockedRentalRepoFactory
}

// NewRentalOverdueJob builds the job that promotes ACTIVE rentals whose
// window has ended to OVERDUE. Overdue rentals keep consuming pool capacity
// until they are returned.
func NewRentalOverdueJob(params RentalOverdueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("rental reader required")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = defaultLockedRentalRepo
	}
	return &rentalOverdueJob{
		logg:        params.Logger,
		db:          params.DB,
		reader:      params.Reader,
		repoFactory: repoFactory,
		now:         time.Now,
	}, nil
}

type rentalOverdueJob struct {
	logg        *logger.Logger
	db          txRunner
	reader      overdueRentalReader
	repoFactory lockedRentalRepoFactory
	now         func() time.Time
}

func (j *rentalOverdueJob) Name() string { return "rental-overdue" }

// Run sweeps every tenant in one pass. A failure on one rental does not stop
// the rest; errors are aggregated and reported together.
func (j *rentalOverdueJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	candidates, err := j.reader.FindActiveEndedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query overdue candidates: %w", err)
	}

	var errs []error
	promoted := 0
	for _, rental := range candidates {
		if err := j.promote(ctx, rental); err != nil {
			errs = append(errs, fmt.Errorf("rental %s: %w", rental.ID, err))
			continue
		}
		promoted++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(candidates),
		"promoted":   promoted,
		"failed":     len(errs),
	})
	j.logg.Info(logCtx, "overdue sweep complete")
	return multierr.Combine(errs...)
}

// promote re-checks the rental under a row lock: a concurrent return or
// extension between the candidate query and this transaction wins.
func (j *rentalOverdueJob) promote(ctx context.Context, rental models.Rental) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repoFactory(tx)
		current, err := repo.FindForUpdate(ctx, rental.BusinessID, rental.ID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		if current.Status != enums.RentalStatusActive || current.EndAt.After(j.now().UTC()) {
			return nil
		}
		return repo.Update(ctx, current.ID, map[string]any{
			"status": enums.RentalStatusOverdue,
		})
	})
}
