package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/revocation"
	"github.com/jwalitptl/clinic-api/pkg/security"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

const tokenType = "Bearer"

type Service struct {
	userRepo repository.UserRepository
	jwtSvc   auth.JWTService
	hasher   security.PasswordHasher
	revoked  revocation.Store
	validate validator.Validator
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewService(
	userRepo repository.UserRepository,
	jwtSvc auth.JWTService,
	hasher security.PasswordHasher,
	revoked revocation.Store,
	validate validator.Validator,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		userRepo: userRepo,
		jwtSvc:   jwtSvc,
		hasher:   hasher,
		revoked:  revoked,
		validate: validate,
		metrics:  m,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	resp, err := s.register(ctx, req)
	s.metrics.AuthEvents.WithLabelValues("register", metrics.Outcome(err)).Inc()
	return resp, err
}

func (s *Service) register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if violations := s.validate.Validate(req); len(violations) > 0 {
		return nil, apperrors.ValidationFailed(violations)
	}

	taken, err := s.userRepo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperrors.Unexpected("Failed to register user", err)
	}
	if taken {
		return nil, apperrors.BusinessRule("Username already exists")
	}

	taken, err = s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperrors.Unexpected("Failed to register user", err)
	}
	if taken {
		return nil, apperrors.BusinessRule("Email already exists")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Unexpected("Failed to register user", err)
	}

	user := &model.User{
		Username:     req.Username,
		PasswordHash: hash,
		FullName:     req.FullName,
		Email:        req.Email,
		Role:         model.RoleUser,
		Active:       true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// A concurrent registration can win between the checks and the insert.
		var dup *repository.DuplicateError
		if errors.As(err, &dup) {
			if dup.Column == "email" {
				return nil, apperrors.BusinessRule("Email already exists")
			}
			return nil, apperrors.BusinessRule("Username already exists")
		}
		return nil, apperrors.Unexpected("Failed to register user", err)
	}

	s.logger.Info().Str("username", user.Username).Msg("user registered")
	return s.issue(user, "User registered successfully")
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	resp, err := s.login(ctx, req)
	s.metrics.AuthEvents.WithLabelValues("login", metrics.Outcome(err)).Inc()
	return resp, err
}

func (s *Service) login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	if violations := s.validate.Validate(req); len(violations) > 0 {
		return nil, apperrors.ValidationFailed(violations)
	}

	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.InvalidCredentials()
	}
	if err != nil {
		return nil, apperrors.Unexpected("Failed to authenticate user", err)
	}

	if !user.Active {
		return nil, apperrors.InvalidCredentials()
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.logger.Warn().Str("username", req.Username).Msg("failed login attempt")
		return nil, apperrors.InvalidCredentials()
	}

	return s.issue(user, "Login successful")
}

func (s *Service) issue(user *model.User, message string) (*model.AuthResponse, error) {
	token, _, err := s.jwtSvc.GenerateToken(user)
	if err != nil {
		return nil, apperrors.Unexpected("Failed to generate token", err)
	}

	return &model.AuthResponse{
		Token:    token,
		Type:     tokenType,
		Username: user.Username,
		FullName: user.FullName,
		Email:    user.Email,
		Message:  message,
	}, nil
}

// Authenticate verifies a bearer token and rejects revoked ones.
func (s *Service) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthenticated("Invalid or expired token", err)
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperrors.Unexpected("Failed to verify token", err)
	}
	if revoked {
		return nil, apperrors.Unauthenticated("Token has been revoked", nil)
	}
	return claims, nil
}

// Logout revokes the token the caller authenticated with.
func (s *Service) Logout(ctx context.Context) error {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return apperrors.Unauthenticated("Authentication required", nil)
	}

	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		s.metrics.AuthEvents.WithLabelValues("logout", "error").Inc()
		return apperrors.Unexpected("Failed to revoke token", err)
	}

	s.metrics.AuthEvents.WithLabelValues("logout", "success").Inc()
	s.logger.Info().Str("username", claims.Subject).Msg("token revoked")
	return nil
}

// CurrentIdentity resolves the authenticated caller to a user record.
func (s *Service) CurrentIdentity(ctx context.Context) (*model.Identity, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok || claims.Subject == "" {
		return nil, apperrors.Unauthenticated("Authentication required", nil)
	}

	user, err := s.userRepo.GetByUsername(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Unauthenticated("User not found", err)
	}
	if err != nil {
		return nil, apperrors.Unexpected("Failed to resolve current user", err)
	}
	return model.NewIdentity(user), nil
}
