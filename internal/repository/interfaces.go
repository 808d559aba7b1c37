package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

var (
	// ErrNotFound is returned by single-row lookups that match nothing.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate matches any DuplicateError.
	ErrDuplicate = errors.New("duplicate record")
)

// DuplicateError reports the unique column an insert collided with.
type DuplicateError struct {
	Column string
	Err    error
}

func (e *DuplicateError) Error() string {
	return "duplicate " + e.Column + ": " + e.Err.Error()
}

func (e *DuplicateError) Unwrap() error { return e.Err }

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

type (
	// Transactor runs fn inside one transaction. Repository calls made with
	// the ctx passed to fn join that transaction.
	Transactor interface {
		WithinTx(ctx context.Context, readOnly bool, fn func(ctx context.Context) error) error
	}

	PrescriptionRepository interface {
		Create(ctx context.Context, p *model.Prescription) error
		Update(ctx context.Context, p *model.Prescription) error
		FindByID(ctx context.Context, id uuid.UUID) (*model.Prescription, error)
		FindInRange(ctx context.Context, start, end model.Date) ([]*model.Prescription, error)
		SearchByPatientName(ctx context.Context, fragment string) ([]*model.Prescription, error)
		ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
		DeleteByID(ctx context.Context, id uuid.UUID) error
		CountGroupedByDate(ctx context.Context, start, end model.Date) ([]model.DayCount, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.User, error)
		GetByUsername(ctx context.Context, username string) (*model.User, error)
		ExistsByUsername(ctx context.Context, username string) (bool, error)
		ExistsByEmail(ctx context.Context, email string) (bool, error)
	}
)
