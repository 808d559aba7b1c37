package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const userColumns = `id, username, password_hash, full_name, email, role, active, created_at, updated_at`

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (:id, :username, :password_hash, :full_name, :email, :role, :active, :created_at, :updated_at)
	`

	user.ID = uuid.New()
	if user.CreatedAt.IsZero() {
		user.Touch(time.Now())
	}

	if _, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, user); err != nil {
		if column, ok := uniqueViolation(err); ok {
			return &repository.DuplicateError{Column: column, Err: err}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	q := r.ext(ctx)

	var user model.User
	if err := sqlx.GetContext(ctx, q, &user, q.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetByIDs loads the users with the given ids in one query. Unknown ids are
// absent from the result.
func (r *userRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.User, error) {
	users := make(map[uuid.UUID]*model.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.String())
	}

	query, args, err := sqlx.In(`SELECT `+userColumns+` FROM users WHERE id IN (?)`, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to build user lookup: %w", err)
	}

	q := r.ext(ctx)
	var rows []*model.User
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	for _, u := range rows {
		users[u.ID] = u
	}
	return users, nil
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT COUNT(1) FROM users WHERE username = ?`, username)
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT COUNT(1) FROM users WHERE LOWER(email) = LOWER(?)`, email)
}

func (r *userRepository) exists(ctx context.Context, query string, arg interface{}) (bool, error) {
	q := r.ext(ctx)

	var count int
	if err := sqlx.GetContext(ctx, q, &count, q.Rebind(query), arg); err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return count > 0, nil
}
