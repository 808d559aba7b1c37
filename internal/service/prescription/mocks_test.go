package prescription

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

var (
	_ repository.PrescriptionRepository = (*MockPrescriptionRepository)(nil)
	_ repository.UserRepository         = (*MockUserRepository)(nil)
	_ repository.Transactor             = (*MockTransactor)(nil)
	_ IdentityResolver                  = (*MockIdentityResolver)(nil)
)

type MockPrescriptionRepository struct {
	CreateFunc              func(ctx context.Context, p *model.Prescription) error
	UpdateFunc              func(ctx context.Context, p *model.Prescription) error
	FindByIDFunc            func(ctx context.Context, id uuid.UUID) (*model.Prescription, error)
	FindInRangeFunc         func(ctx context.Context, start, end model.Date) ([]*model.Prescription, error)
	SearchByPatientNameFunc func(ctx context.Context, fragment string) ([]*model.Prescription, error)
	ExistsByIDFunc          func(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteByIDFunc          func(ctx context.Context, id uuid.UUID) error
	CountGroupedByDateFunc  func(ctx context.Context, start, end model.Date) ([]model.DayCount, error)

	CreateCallCount     int32
	UpdateCallCount     int32
	DeleteByIDCallCount int32
}

func (m *MockPrescriptionRepository) Create(ctx context.Context, p *model.Prescription) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	p.ID = uuid.New()
	return nil
}

func (m *MockPrescriptionRepository) Update(ctx context.Context, p *model.Prescription) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, p)
	}
	return nil
}

func (m *MockPrescriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, errors.New("FindByIDFunc not implemented in mock")
}

func (m *MockPrescriptionRepository) FindInRange(ctx context.Context, start, end model.Date) ([]*model.Prescription, error) {
	if m.FindInRangeFunc != nil {
		return m.FindInRangeFunc(ctx, start, end)
	}
	return []*model.Prescription{}, nil
}

func (m *MockPrescriptionRepository) SearchByPatientName(ctx context.Context, fragment string) ([]*model.Prescription, error) {
	if m.SearchByPatientNameFunc != nil {
		return m.SearchByPatientNameFunc(ctx, fragment)
	}
	return []*model.Prescription{}, nil
}

func (m *MockPrescriptionRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.ExistsByIDFunc != nil {
		return m.ExistsByIDFunc(ctx, id)
	}
	return false, errors.New("ExistsByIDFunc not implemented in mock")
}

func (m *MockPrescriptionRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	atomic.AddInt32(&m.DeleteByIDCallCount, 1)
	if m.DeleteByIDFunc != nil {
		return m.DeleteByIDFunc(ctx, id)
	}
	return nil
}

func (m *MockPrescriptionRepository) CountGroupedByDate(ctx context.Context, start, end model.Date) ([]model.DayCount, error) {
	if m.CountGroupedByDateFunc != nil {
		return m.CountGroupedByDateFunc(ctx, start, end)
	}
	return []model.DayCount{}, nil
}

// MockUserRepository only serves author lookups.
type MockUserRepository struct {
	Users map[uuid.UUID]*model.User
}

func (m *MockUserRepository) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.User, error) {
	out := map[uuid.UUID]*model.User{}
	for _, id := range ids {
		if u, ok := m.Users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (m *MockUserRepository) Create(context.Context, *model.User) error {
	return errors.New("Create not implemented in mock")
}

func (m *MockUserRepository) GetByID(context.Context, uuid.UUID) (*model.User, error) {
	return nil, errors.New("GetByID not implemented in mock")
}

func (m *MockUserRepository) GetByUsername(context.Context, string) (*model.User, error) {
	return nil, errors.New("GetByUsername not implemented in mock")
}

func (m *MockUserRepository) ExistsByUsername(context.Context, string) (bool, error) {
	return false, errors.New("ExistsByUsername not implemented in mock")
}

func (m *MockUserRepository) ExistsByEmail(context.Context, string) (bool, error) {
	return false, errors.New("ExistsByEmail not implemented in mock")
}

// MockTransactor runs fn inline and records the requested modes.
type MockTransactor struct {
	Modes []bool
}

func (m *MockTransactor) WithinTx(ctx context.Context, readOnly bool, fn func(ctx context.Context) error) error {
	m.Modes = append(m.Modes, readOnly)
	return fn(ctx)
}

type MockIdentityResolver struct {
	Identity *model.Identity
	Err      error
}

func (m *MockIdentityResolver) CurrentIdentity(context.Context) (*model.Identity, error) {
	return m.Identity, m.Err
}
