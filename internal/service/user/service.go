package user

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

type Service struct {
	repo   repository.UserRepository
	hasher security.PasswordHasher
	logger zerolog.Logger
}

func NewService(repo repository.UserRepository, hasher security.PasswordHasher, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		logger: logger.With().Str("component", "user").Logger(),
	}
}

// EnsureDefaultUsers creates every seed account whose username is not taken
// yet and returns how many were created. Existing accounts are left as is,
// so running it again is a no-op.
func (s *Service) EnsureDefaultUsers(ctx context.Context, seeds []model.SeedUser) (int, error) {
	created := 0
	for _, seed := range seeds {
		exists, err := s.repo.ExistsByUsername(ctx, seed.Username)
		if err != nil {
			return created, fmt.Errorf("failed to check user %s: %w", seed.Username, err)
		}
		if exists {
			s.logger.Debug().Str("username", seed.Username).Msg("seed user already present")
			continue
		}

		hash, err := s.hasher.Hash(seed.Password)
		if err != nil {
			return created, fmt.Errorf("failed to hash password for %s: %w", seed.Username, err)
		}

		role := seed.Role
		if role == "" {
			role = model.RoleUser
		}

		user := &model.User{
			Username:     seed.Username,
			PasswordHash: hash,
			FullName:     seed.FullName,
			Email:        seed.Email,
			Role:         role,
			Active:       true,
		}
		if err := s.repo.Create(ctx, user); err != nil {
			return created, fmt.Errorf("failed to create user %s: %w", seed.Username, err)
		}

		created++
		s.logger.Info().Str("username", user.Username).Str("role", role).Msg("seed user created")
	}
	return created, nil
}
