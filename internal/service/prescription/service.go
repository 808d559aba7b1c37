package prescription

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

// IdentityResolver yields the authenticated caller.
type IdentityResolver interface {
	CurrentIdentity(ctx context.Context) (*model.Identity, error)
}

type Service struct {
	repo     repository.PrescriptionRepository
	users    repository.UserRepository
	tx       repository.Transactor
	identity IdentityResolver
	validate validator.Validator
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
	location *time.Location
}

type Option func(*Service)

// WithClock overrides the time source used for timestamps and "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone in which the current month is determined.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

func NewService(
	repo repository.PrescriptionRepository,
	users repository.UserRepository,
	tx repository.Transactor,
	identity IdentityResolver,
	validate validator.Validator,
	m *metrics.Metrics,
	logger zerolog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		repo:     repo,
		users:    users,
		tx:       tx,
		identity: identity,
		validate: validate,
		metrics:  m,
		logger:   logger.With().Str("component", "prescription").Logger(),
		now:      time.Now,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, req *model.PrescriptionRequest) (*model.PrescriptionResponse, error) {
	resp, err := s.create(ctx, req)
	s.observe("create", err)
	return resp, err
}

func (s *Service) create(ctx context.Context, req *model.PrescriptionRequest) (*model.PrescriptionResponse, error) {
	req.Normalize()
	if violations := s.validate.Validate(req); len(violations) > 0 {
		return nil, apperrors.ValidationFailed(violations)
	}

	author, err := s.identity.CurrentIdentity(ctx)
	if err != nil {
		return nil, err
	}

	p := &model.Prescription{CreatedBy: author.UserID}
	req.Apply(p)
	p.Touch(s.now())

	var resp *model.PrescriptionResponse
	err = s.tx.WithinTx(ctx, false, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		resp, err = s.shapeOne(ctx, p)
		return err
	})
	if err != nil {
		return nil, s.unexpected("Failed to create prescription", err)
	}

	s.logger.Info().
		Str("prescription_id", p.ID.String()).
		Str("username", author.Username).
		Msg("prescription created")
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.PrescriptionResponse, error) {
	var resp *model.PrescriptionResponse
	err := s.tx.WithinTx(ctx, true, func(ctx context.Context) error {
		p, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		resp, err = s.shapeOne(ctx, p)
		return err
	})
	err = s.mapNotFound(id, err, "Failed to get prescription")
	s.observe("get", err)
	return resp, err
}

// List returns prescriptions dated within the range, newest date first.
// When either bound is missing the current month is used instead.
func (s *Service) List(ctx context.Context, r model.DateRange) ([]*model.PrescriptionResponse, error) {
	start, end := s.window(r)

	var resp []*model.PrescriptionResponse
	err := s.tx.WithinTx(ctx, true, func(ctx context.Context) error {
		ps, err := s.repo.FindInRange(ctx, start, end)
		if err != nil {
			return err
		}
		resp, err = s.shape(ctx, ps)
		return err
	})
	if err != nil {
		err = s.unexpected("Failed to list prescriptions", err)
	}
	s.observe("list", err)
	return resp, err
}

// Search matches a case-insensitive fragment of the patient name.
func (s *Service) Search(ctx context.Context, patientName string) ([]*model.PrescriptionResponse, error) {
	fragment := strings.TrimSpace(patientName)
	if fragment == "" {
		err := apperrors.ValidationFailed([]string{"patientName: Patient name is required"})
		s.observe("search", err)
		return nil, err
	}

	var resp []*model.PrescriptionResponse
	err := s.tx.WithinTx(ctx, true, func(ctx context.Context) error {
		ps, err := s.repo.SearchByPatientName(ctx, fragment)
		if err != nil {
			return err
		}
		resp, err = s.shape(ctx, ps)
		return err
	})
	if err != nil {
		err = s.unexpected("Failed to search prescriptions", err)
	}
	s.observe("search", err)
	return resp, err
}

// Update replaces every mutable field of the prescription. The author and
// creation time are never changed.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.PrescriptionRequest) (*model.PrescriptionResponse, error) {
	resp, err := s.update(ctx, id, req)
	s.observe("update", err)
	return resp, err
}

func (s *Service) update(ctx context.Context, id uuid.UUID, req *model.PrescriptionRequest) (*model.PrescriptionResponse, error) {
	req.Normalize()
	if violations := s.validate.Validate(req); len(violations) > 0 {
		return nil, apperrors.ValidationFailed(violations)
	}

	var resp *model.PrescriptionResponse
	err := s.tx.WithinTx(ctx, false, func(ctx context.Context) error {
		p, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}

		req.Apply(p)
		p.UpdatedAt = s.now()
		if p.UpdatedAt.Before(p.CreatedAt) {
			p.UpdatedAt = p.CreatedAt
		}

		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		resp, err = s.shapeOne(ctx, p)
		return err
	})
	if err != nil {
		return nil, s.mapNotFound(id, err, "Failed to update prescription")
	}

	s.logger.Info().Str("prescription_id", id.String()).Msg("prescription updated")
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithinTx(ctx, false, func(ctx context.Context) error {
		exists, err := s.repo.ExistsByID(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return s.repo.DeleteByID(ctx, id)
	})
	err = s.mapNotFound(id, err, "Failed to delete prescription")
	s.observe("delete", err)
	if err == nil {
		s.logger.Info().Str("prescription_id", id.String()).Msg("prescription deleted")
	}
	return err
}

// DayWiseCount reports how many prescriptions fall on each day of the range
// in ascending date order. Days without prescriptions are omitted.
func (s *Service) DayWiseCount(ctx context.Context, r model.DateRange) ([]model.DayWiseCountResponse, error) {
	start, end := s.window(r)

	var counts []model.DayCount
	err := s.tx.WithinTx(ctx, true, func(ctx context.Context) error {
		var err error
		counts, err = s.repo.CountGroupedByDate(ctx, start, end)
		return err
	})
	if err != nil {
		err = s.unexpected("Failed to build day-wise report", err)
		s.observe("day_wise_count", err)
		return nil, err
	}

	resp := make([]model.DayWiseCountResponse, 0, len(counts))
	for _, c := range counts {
		resp = append(resp, model.DayWiseCountResponse{
			Day:               c.Day.String(),
			PrescriptionCount: c.Count,
		})
	}
	s.observe("day_wise_count", nil)
	return resp, nil
}

// window resolves a possibly partial range. "Today" is read once so both
// defaults come from the same month.
func (s *Service) window(r model.DateRange) (model.Date, model.Date) {
	if r.Complete() {
		return *r.Start, *r.End
	}
	today := model.Today(s.now(), s.location)
	return today.FirstOfMonth(), today.LastOfMonth()
}

func (s *Service) shapeOne(ctx context.Context, p *model.Prescription) (*model.PrescriptionResponse, error) {
	resp, err := s.shape(ctx, []*model.Prescription{p})
	if err != nil {
		return nil, err
	}
	return resp[0], nil
}

// shape resolves the authors of ps with a single lookup.
func (s *Service) shape(ctx context.Context, ps []*model.Prescription) ([]*model.PrescriptionResponse, error) {
	resp := make([]*model.PrescriptionResponse, 0, len(ps))
	if len(ps) == 0 {
		return resp, nil
	}

	seen := make(map[uuid.UUID]struct{}, len(ps))
	ids := make([]uuid.UUID, 0, len(ps))
	for _, p := range ps {
		if _, ok := seen[p.CreatedBy]; !ok {
			seen[p.CreatedBy] = struct{}{}
			ids = append(ids, p.CreatedBy)
		}
	}

	authors, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, p := range ps {
		resp = append(resp, model.NewPrescriptionResponse(p, authors[p.CreatedBy], s.location))
	}
	return resp, nil
}

func (s *Service) mapNotFound(id uuid.UUID, err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("Prescription not found with id: " + id.String())
	}
	return s.unexpected(message, err)
}

func (s *Service) unexpected(message string, err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	s.logger.Error().Err(err).Msg(message)
	return apperrors.Unexpected(message, err)
}

func (s *Service) observe(operation string, err error) {
	s.metrics.PrescriptionOperations.WithLabelValues(operation, metrics.Outcome(err)).Inc()
}
