package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const prescriptionColumns = `id, prescription_date, patient_name, patient_age, patient_gender,
	diagnosis, medicines, next_visit_date, created_by, created_at, updated_at`

type prescriptionRepository struct {
	BaseRepository
}

func NewPrescriptionRepository(base BaseRepository) repository.PrescriptionRepository {
	return &prescriptionRepository{base}
}

func (r *prescriptionRepository) Create(ctx context.Context, p *model.Prescription) error {
	query := `
		INSERT INTO prescriptions (` + prescriptionColumns + `)
		VALUES (
			:id, :prescription_date, :patient_name, :patient_age, :patient_gender,
			:diagnosis, :medicines, :next_visit_date, :created_by, :created_at, :updated_at
		)
	`

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	if _, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, p); err != nil {
		return fmt.Errorf("failed to create prescription: %w", err)
	}
	return nil
}

func (r *prescriptionRepository) Update(ctx context.Context, p *model.Prescription) error {
	query := `
		UPDATE prescriptions SET
			prescription_date = :prescription_date,
			patient_name = :patient_name,
			patient_age = :patient_age,
			patient_gender = :patient_gender,
			diagnosis = :diagnosis,
			medicines = :medicines,
			next_visit_date = :next_visit_date,
			updated_at = :updated_at
		WHERE id = :id
	`

	result, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, p)
	if err != nil {
		return fmt.Errorf("failed to update prescription: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *prescriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	q := r.ext(ctx)
	query := q.Rebind(`SELECT ` + prescriptionColumns + ` FROM prescriptions WHERE id = ?`)

	var p model.Prescription
	if err := sqlx.GetContext(ctx, q, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get prescription: %w", err)
	}
	return &p, nil
}

func (r *prescriptionRepository) FindInRange(ctx context.Context, start, end model.Date) ([]*model.Prescription, error) {
	q := r.ext(ctx)
	query := q.Rebind(`
		SELECT ` + prescriptionColumns + `
		FROM prescriptions
		WHERE prescription_date BETWEEN ? AND ?
		ORDER BY prescription_date DESC, created_at DESC
	`)

	prescriptions := []*model.Prescription{}
	if err := sqlx.SelectContext(ctx, q, &prescriptions, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return prescriptions, nil
}

func (r *prescriptionRepository) SearchByPatientName(ctx context.Context, fragment string) ([]*model.Prescription, error) {
	q := r.ext(ctx)
	query := q.Rebind(`
		SELECT ` + prescriptionColumns + `
		FROM prescriptions
		WHERE LOWER(patient_name) LIKE ? ESCAPE '\'
		ORDER BY prescription_date DESC, created_at DESC
	`)

	pattern := "%" + escapeLike(strings.ToLower(fragment)) + "%"

	prescriptions := []*model.Prescription{}
	if err := sqlx.SelectContext(ctx, q, &prescriptions, query, pattern); err != nil {
		return nil, fmt.Errorf("failed to search prescriptions: %w", err)
	}
	return prescriptions, nil
}

func (r *prescriptionRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	q := r.ext(ctx)
	query := q.Rebind(`SELECT COUNT(1) FROM prescriptions WHERE id = ?`)

	var count int
	if err := sqlx.GetContext(ctx, q, &count, query, id); err != nil {
		return false, fmt.Errorf("failed to check prescription: %w", err)
	}
	return count > 0, nil
}

func (r *prescriptionRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	found, err := r.execAffected(ctx, `DELETE FROM prescriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete prescription: %w", err)
	}
	if !found {
		return repository.ErrNotFound
	}
	return nil
}

func (r *prescriptionRepository) CountGroupedByDate(ctx context.Context, start, end model.Date) ([]model.DayCount, error) {
	q := r.ext(ctx)
	query := q.Rebind(`
		SELECT prescription_date AS day, COUNT(*) AS prescription_count
		FROM prescriptions
		WHERE prescription_date BETWEEN ? AND ?
		GROUP BY prescription_date
		ORDER BY prescription_date ASC
	`)

	counts := []model.DayCount{}
	if err := sqlx.SelectContext(ctx, q, &counts, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to count prescriptions by day: %w", err)
	}
	return counts, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
