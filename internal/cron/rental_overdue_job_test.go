package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wavecresthq/wavecrest-backend/pkg/db/models"
	"github.com/wavecresthq/wavecrest-backend/pkg/enums"
	"github.com/wavecresthq/wavecrest-backend/pkg/logger"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeOverdueReader struct {
	rentals []models.Rental
	err     error
}

func (f *fakeOverdueReader) FindActiveEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Rental, error) {
	return f.rentals, f.err
}

type fakeLockedRentalRepo struct {
	current *models.Rental
	findErr error
	updates []map[string]any
}

func (f *fakeLockedRentalRepo) FindForUpdate(ctx context.Context, businessID, rentalID uuid.UUID) (*models.Rental, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.current, nil
}

func (f *fakeLockedRentalRepo) Update(ctx context.Context, rentalID uuid.UUID, updates map[string]any) error {
	f.updates = append(f.updates, updates)
	return nil
}

func newOverdueJobTest(t *testing.T, reader *fakeOverdueReader, repo *fakeLockedRentalRepo) *rentalOverdueJob {
	t.Helper()
	jobIface, err := NewRentalOverdueJob(RentalOverdueJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		DB:     fakeTxRunner{},
		Reader: reader,
		RepoFactory: func(tx *gorm.DB) lockedRentalRepo {
			return repo
		},
	})
	if err != nil {
		t.Fatalf("NewRentalOverdueJob: %v", err)
	}
	job, ok := jobIface.(*rentalOverdueJob)
	if !ok {
		t.Fatalf("expected rentalOverdueJob, got %T", jobIface)
	}
	return job
}

func TestRentalOverdueJob_promotesEndedActiveRental(t *testing.T) {
	now := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	rental := models.Rental{
		ID:         uuid.New(),
		BusinessID: uuid.New(),
		Status:     enums.RentalStatusActive,
		EndAt:      now.Add(-time.Hour),
	}
	reader := &fakeOverdueReader{rentals: []models.Rental{rental}}
	repo := &fakeLockedRentalRepo{current: &rental}
	job := newOverdueJobTest(t, reader, repo)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(repo.updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(repo.updates))
	}
	if status := repo.updates[0]["status"]; status != enums.RentalStatusOverdue {
		t.Fatalf("expected OVERDUE, got %v", status)
	}
}

func TestRentalOverdueJob_skipsRentalReturnedMeanwhile(t *testing.T) {
	now := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	candidate := models.Rental{
		ID:         uuid.New(),
		BusinessID: uuid.New(),
		Status:     enums.RentalStatusActive,
		EndAt:      now.Add(-time.Hour),
	}
	// Under the lock the rental turns out to be returned already.
	returned := candidate
	returned.Status = enums.RentalStatusReturned

	reader := &fakeOverdueReader{rentals: []models.Rental{candidate}}
	repo := &fakeLockedRentalRepo{current: &returned}
	job := newOverdueJobTest(t, reader, repo)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatalf("expected no updates, got %d", len(repo.updates))
	}
}

func TestRentalOverdueJob_skipsRentalExtendedMeanwhile(t *testing.T) {
	now := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	candidate := models.Rental{
		ID:         uuid.New(),
		BusinessID: uuid.New(),
		Status:     enums.RentalStatusActive,
		EndAt:      now.Add(-time.Hour),
	}
	extended := candidate
	extended.EndAt = now.Add(2 * time.Hour)

	reader := &fakeOverdueReader{rentals: []models.Rental{candidate}}
	repo := &fakeLockedRentalRepo{current: &extended}
	job := newOverdueJobTest(t, reader, repo)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatalf("expected no updates, got %d", len(repo.updates))
	}
}

func TestRentalOverdueJob_aggregatesPerRentalErrors(t *testing.T) {
	now := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	first := models.Rental{ID: uuid.New(), BusinessID: uuid.New(), Status: enums.RentalStatusActive, EndAt: now.Add(-time.Hour)}
	second := models.Rental{ID: uuid.New(), BusinessID: uuid.New(), Status: enums.RentalStatusActive, EndAt: now.Add(-time.Hour)}

	reader := &fakeOverdueReader{rentals: []models.Rental{first, second}}
	repo := &fakeLockedRentalRepo{findErr: errors.New("lock timeout")}
	job := newOverdueJobTest(t, reader, repo)
	job.now = func() time.Time { return now }

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if len(repo.updates) != 0 {
		t.Fatalf("expected no updates, got %d", len(repo.updates))
	}
}
