package prescription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

var fixedNow = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	repo     *MockPrescriptionRepository
	tx       *MockTransactor
	identity *MockIdentityResolver
	doctor   *model.User
	clock    *time.Time
}

func newFixture() *fixture {
	doctor := &model.User{Username: "doctor", FullName: "Dr. John Doe", Email: "doctor@cmedhealth.com"}
	doctor.ID = uuid.New()

	now := fixedNow
	clock := func() time.Time { return now }

	f := &fixture{
		repo:     &MockPrescriptionRepository{},
		tx:       &MockTransactor{},
		identity: &MockIdentityResolver{Identity: model.NewIdentity(doctor)},
		doctor:   doctor,
		clock:    &now,
	}
	f.svc = NewService(
		f.repo,
		&MockUserRepository{Users: map[uuid.UUID]*model.User{doctor.ID: doctor}},
		f.tx,
		f.identity,
		validator.New(clock, time.UTC),
		metrics.NewMetrics("test", prometheus.NewRegistry()),
		zerolog.Nop(),
		WithClock(clock),
		WithLocation(time.UTC),
	)
	return f
}

func datePtr(y int, m time.Month, d int) *model.Date {
	date := model.NewDate(y, m, d)
	return &date
}

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func validRequest() *model.PrescriptionRequest {
	return &model.PrescriptionRequest{
		PrescriptionDate: datePtr(2024, time.March, 10),
		PatientName:      "Jane Roe",
		PatientAge:       intPtr(34),
		PatientGender:    "FEMALE",
		Diagnosis:        strPtr("Seasonal flu"),
		Medicines:        strPtr("Paracetamol 500mg"),
		NextVisitDate:    datePtr(2024, time.March, 24),
	}
}

func requireKind(t *testing.T, err error, kind apperrors.Kind) *apperrors.AppError {
	t.Helper()
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	require.Equal(t, kind, appErr.Kind)
	return appErr
}

func TestCreate(t *testing.T) {
	f := newFixture()
	var saved *model.Prescription
	f.repo.CreateFunc = func(_ context.Context, p *model.Prescription) error {
		p.ID = uuid.New()
		saved = p
		return nil
	}

	resp, err := f.svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	require.NotNil(t, saved)
	assert.Equal(t, f.doctor.ID, saved.CreatedBy)
	assert.Equal(t, fixedNow, saved.CreatedAt)
	assert.Equal(t, saved.CreatedAt, saved.UpdatedAt)

	assert.Equal(t, saved.ID, resp.ID)
	assert.Equal(t, "2024-03-10", resp.PrescriptionDate.String())
	assert.Equal(t, "Jane Roe", resp.PatientName)
	assert.Equal(t, 34, resp.PatientAge)
	assert.Equal(t, model.GenderFemale, resp.PatientGender)
	assert.Equal(t, "doctor", resp.CreatedByUsername)
	assert.Equal(t, "Dr. John Doe", resp.CreatedByFullName)
	assert.Equal(t, resp.CreatedAt, resp.UpdatedAt)
	assert.Equal(t, []bool{false}, f.tx.Modes)
}

func TestCreate_TodayIsAllowed(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.PrescriptionDate = datePtr(2024, time.March, 15)

	_, err := f.svc.Create(context.Background(), req)
	assert.NoError(t, err)
}

func TestCreate_FutureDateRejected(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.PrescriptionDate = datePtr(2024, time.March, 16)

	_, err := f.svc.Create(context.Background(), req)
	appErr := requireKind(t, err, apperrors.KindValidationFailed)
	assert.Equal(t, []string{"prescriptionDate: Prescription date cannot be in the future"}, appErr.FieldErrors)
	assert.Equal(t, int32(0), f.repo.CreateCallCount)
}

func TestCreate_AggregatesAllViolations(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.PatientName = ""
	req.PatientAge = intPtr(200)

	_, err := f.svc.Create(context.Background(), req)
	appErr := requireKind(t, err, apperrors.KindValidationFailed)
	assert.Equal(t, "Invalid input data", appErr.Message)
	assert.ElementsMatch(t, []string{
		"patientName: Patient name is required",
		"patientAge: Patient age must not exceed 150",
	}, appErr.FieldErrors)
	assert.Equal(t, int32(0), f.repo.CreateCallCount)
}

func TestCreate_FieldRules(t *testing.T) {
	long := func(n int) string {
		b := make([]rune, n)
		for i := range b {
			b[i] = 'é'
		}
		return string(b)
	}

	tests := []struct {
		name   string
		mutate func(r *model.PrescriptionRequest)
		want   []string
	}{
		{"missing date", func(r *model.PrescriptionRequest) { r.PrescriptionDate = nil }, []string{"prescriptionDate: Prescription date is required"}},
		{"blank date", func(r *model.PrescriptionRequest) { r.PrescriptionDate = &model.Date{} }, []string{"prescriptionDate: Prescription date is required"}},
		{"blank next visit", func(r *model.PrescriptionRequest) { r.NextVisitDate = &model.Date{} }, nil},
		{"blank name", func(r *model.PrescriptionRequest) { r.PatientName = "   " }, []string{"patientName: Patient name is required"}},
		{"name too long", func(r *model.PrescriptionRequest) { r.PatientName = long(101) }, []string{"patientName: Patient name must not exceed 100 characters"}},
		{"name at limit", func(r *model.PrescriptionRequest) { r.PatientName = long(100) }, nil},
		{"missing age", func(r *model.PrescriptionRequest) { r.PatientAge = nil }, []string{"patientAge: Patient age is required"}},
		{"negative age", func(r *model.PrescriptionRequest) { r.PatientAge = intPtr(-1) }, []string{"patientAge: Patient age must be at least 0"}},
		{"age zero", func(r *model.PrescriptionRequest) { r.PatientAge = intPtr(0) }, nil},
		{"age 150", func(r *model.PrescriptionRequest) { r.PatientAge = intPtr(150) }, nil},
		{"missing gender", func(r *model.PrescriptionRequest) { r.PatientGender = "" }, []string{"patientGender: Patient gender is required"}},
		{"bad gender", func(r *model.PrescriptionRequest) { r.PatientGender = "male" }, []string{"patientGender: Gender must be MALE, FEMALE, or OTHER"}},
		{"long diagnosis", func(r *model.PrescriptionRequest) { r.Diagnosis = strPtr(long(2001)) }, []string{"diagnosis: Diagnosis must not exceed 2000 characters"}},
		{"long medicines", func(r *model.PrescriptionRequest) { r.Medicines = strPtr(long(2001)) }, []string{"medicines: Medicines must not exceed 2000 characters"}},
		{"no optionals", func(r *model.PrescriptionRequest) { r.Diagnosis, r.Medicines, r.NextVisitDate = nil, nil, nil }, nil},
		{"next visit in past", func(r *model.PrescriptionRequest) { r.NextVisitDate = datePtr(2020, time.January, 1) }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := validRequest()
			tt.mutate(req)

			_, err := f.svc.Create(context.Background(), req)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			appErr := requireKind(t, err, apperrors.KindValidationFailed)
			assert.Equal(t, tt.want, appErr.FieldErrors)
		})
	}
}

func TestCreate_RequiresIdentity(t *testing.T) {
	f := newFixture()
	f.identity.Identity = nil
	f.identity.Err = apperrors.Unauthenticated("Authentication required", nil)

	_, err := f.svc.Create(context.Background(), validRequest())
	requireKind(t, err, apperrors.KindUnauthenticated)
	assert.Equal(t, int32(0), f.repo.CreateCallCount)
}

func TestCreate_StoreFailure(t *testing.T) {
	f := newFixture()
	f.repo.CreateFunc = func(context.Context, *model.Prescription) error { return errors.New("disk full") }

	_, err := f.svc.Create(context.Background(), validRequest())
	requireKind(t, err, apperrors.KindUnexpected)
}

func TestGet(t *testing.T) {
	f := newFixture()
	stored := &model.Prescription{
		PrescriptionDate: model.NewDate(2024, time.March, 1),
		PatientName:      "John",
		PatientAge:       50,
		PatientGender:    model.GenderMale,
		CreatedBy:        f.doctor.ID,
	}
	stored.ID = uuid.New()
	stored.Touch(fixedNow)

	f.repo.FindByIDFunc = func(_ context.Context, id uuid.UUID) (*model.Prescription, error) {
		if id == stored.ID {
			return stored, nil
		}
		return nil, repository.ErrNotFound
	}

	resp, err := f.svc.Get(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "John", resp.PatientName)
	assert.Equal(t, "doctor", resp.CreatedByUsername)
	assert.Equal(t, []bool{true}, f.tx.Modes)

	missing := uuid.New()
	_, err = f.svc.Get(context.Background(), missing)
	appErr := requireKind(t, err, apperrors.KindNotFound)
	assert.Equal(t, "Prescription not found with id: "+missing.String(), appErr.Message)
}

func TestList_DefaultsToCurrentMonth(t *testing.T) {
	tests := []struct {
		name  string
		input model.DateRange
	}{
		{"no bounds", model.DateRange{}},
		{"only start", model.DateRange{Start: datePtr(2020, time.January, 1)}},
		{"only end", model.DateRange{End: datePtr(2030, time.January, 1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			var gotStart, gotEnd model.Date
			f.repo.FindInRangeFunc = func(_ context.Context, start, end model.Date) ([]*model.Prescription, error) {
				gotStart, gotEnd = start, end
				return []*model.Prescription{}, nil
			}

			resp, err := f.svc.List(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Empty(t, resp)
			assert.Equal(t, "2024-03-01", gotStart.String())
			assert.Equal(t, "2024-03-31", gotEnd.String())
		})
	}
}

func TestList_LeapFebruary(t *testing.T) {
	f := newFixture()
	*f.clock = time.Date(2024, time.February, 10, 12, 0, 0, 0, time.UTC)

	var gotEnd model.Date
	f.repo.FindInRangeFunc = func(_ context.Context, _, end model.Date) ([]*model.Prescription, error) {
		gotEnd = end
		return nil, nil
	}

	_, err := f.svc.List(context.Background(), model.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", gotEnd.String())
}

func TestList_UsesSuppliedRangeAndShapesAuthors(t *testing.T) {
	f := newFixture()
	ghostAuthor := uuid.New()

	var gotStart, gotEnd model.Date
	f.repo.FindInRangeFunc = func(_ context.Context, start, end model.Date) ([]*model.Prescription, error) {
		gotStart, gotEnd = start, end
		return []*model.Prescription{
			{PrescriptionDate: model.NewDate(2024, time.January, 20), PatientName: "A", CreatedBy: f.doctor.ID},
			{PrescriptionDate: model.NewDate(2024, time.January, 5), PatientName: "B", CreatedBy: ghostAuthor},
		}, nil
	}

	resp, err := f.svc.List(context.Background(), model.DateRange{
		Start: datePtr(2024, time.January, 1),
		End:   datePtr(2024, time.January, 31),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", gotStart.String())
	assert.Equal(t, "2024-01-31", gotEnd.String())

	require.Len(t, resp, 2)
	assert.Equal(t, "A", resp[0].PatientName)
	assert.Equal(t, "Dr. John Doe", resp[0].CreatedByFullName)
	assert.Equal(t, "", resp[1].CreatedByUsername)
}

func TestUpdate(t *testing.T) {
	f := newFixture()
	created := fixedNow.Add(-72 * time.Hour)
	stored := &model.Prescription{
		PrescriptionDate: model.NewDate(2024, time.March, 1),
		PatientName:      "Old",
		PatientAge:       10,
		PatientGender:    model.GenderOther,
		Diagnosis:        strPtr("old"),
		CreatedBy:        f.doctor.ID,
	}
	stored.ID = uuid.New()
	stored.Touch(created)

	f.repo.FindByIDFunc = func(context.Context, uuid.UUID) (*model.Prescription, error) {
		copied := *stored
		return &copied, nil
	}
	var saved *model.Prescription
	f.repo.UpdateFunc = func(_ context.Context, p *model.Prescription) error {
		saved = p
		return nil
	}

	req := validRequest()
	req.Diagnosis = nil
	resp, err := f.svc.Update(context.Background(), stored.ID, req)
	require.NoError(t, err)

	require.NotNil(t, saved)
	assert.Equal(t, stored.ID, saved.ID)
	assert.Equal(t, f.doctor.ID, saved.CreatedBy)
	assert.Equal(t, created, saved.CreatedAt)
	assert.Equal(t, fixedNow, saved.UpdatedAt)
	assert.Equal(t, "Jane Roe", saved.PatientName)
	assert.Nil(t, saved.Diagnosis)

	assert.Equal(t, "Jane Roe", resp.PatientName)
	assert.Nil(t, resp.Diagnosis)
	assert.True(t, resp.UpdatedAt.After(resp.CreatedAt.Time))
	assert.Equal(t, []bool{false}, f.tx.Modes)
}

func TestUpdate_NotFound(t *testing.T) {
	f := newFixture()
	f.repo.FindByIDFunc = func(context.Context, uuid.UUID) (*model.Prescription, error) {
		return nil, repository.ErrNotFound
	}

	_, err := f.svc.Update(context.Background(), uuid.New(), validRequest())
	requireKind(t, err, apperrors.KindNotFound)
	assert.Equal(t, int32(0), f.repo.UpdateCallCount)
}

func TestUpdate_ValidatesBeforeLookup(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.PatientGender = "UNKNOWN"

	_, err := f.svc.Update(context.Background(), uuid.New(), req)
	requireKind(t, err, apperrors.KindValidationFailed)
	assert.Empty(t, f.tx.Modes)
}

func TestDelete(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.repo.ExistsByIDFunc = func(_ context.Context, got uuid.UUID) (bool, error) {
		return got == id, nil
	}

	require.NoError(t, f.svc.Delete(context.Background(), id))
	assert.Equal(t, int32(1), f.repo.DeleteByIDCallCount)

	err := f.svc.Delete(context.Background(), uuid.New())
	requireKind(t, err, apperrors.KindNotFound)
	assert.Equal(t, int32(1), f.repo.DeleteByIDCallCount)
}

func TestDayWiseCount(t *testing.T) {
	f := newFixture()
	var gotStart, gotEnd model.Date
	f.repo.CountGroupedByDateFunc = func(_ context.Context, start, end model.Date) ([]model.DayCount, error) {
		gotStart, gotEnd = start, end
		return []model.DayCount{
			{Day: model.NewDate(2024, time.March, 1), Count: 3},
			{Day: model.NewDate(2024, time.March, 3), Count: 1},
		}, nil
	}

	resp, err := f.svc.DayWiseCount(context.Background(), model.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", gotStart.String())
	assert.Equal(t, "2024-03-31", gotEnd.String())
	assert.Equal(t, []model.DayWiseCountResponse{
		{Day: "2024-03-01", PrescriptionCount: 3},
		{Day: "2024-03-03", PrescriptionCount: 1},
	}, resp)
	assert.Equal(t, []bool{true}, f.tx.Modes)
}

func TestDayWiseCount_Empty(t *testing.T) {
	f := newFixture()

	resp, err := f.svc.DayWiseCount(context.Background(), model.DateRange{
		Start: datePtr(2023, time.January, 1),
		End:   datePtr(2023, time.January, 31),
	})
	require.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Empty(t, resp)
}

func TestSearch(t *testing.T) {
	f := newFixture()
	var fragment string
	f.repo.SearchByPatientNameFunc = func(_ context.Context, got string) ([]*model.Prescription, error) {
		fragment = got
		return []*model.Prescription{{PatientName: "Jane Roe", CreatedBy: f.doctor.ID}}, nil
	}

	resp, err := f.svc.Search(context.Background(), "  roe ")
	require.NoError(t, err)
	assert.Equal(t, "roe", fragment)
	require.Len(t, resp, 1)

	_, err = f.svc.Search(context.Background(), "  ")
	requireKind(t, err, apperrors.KindValidationFailed)
}
