// Package app assembles the HTTP application from configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/config"
	authhandler "github.com/jwalitptl/clinic-api/internal/handler/auth"
	drughandler "github.com/jwalitptl/clinic-api/internal/handler/druginteraction"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	rxhandler "github.com/jwalitptl/clinic-api/internal/handler/prescription"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/repository/sqldb"
	"github.com/jwalitptl/clinic-api/internal/router"
	authservice "github.com/jwalitptl/clinic-api/internal/service/auth"
	"github.com/jwalitptl/clinic-api/internal/service/druginteraction"
	"github.com/jwalitptl/clinic-api/internal/service/prescription"
	userservice "github.com/jwalitptl/clinic-api/internal/service/user"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/revocation"
	"github.com/jwalitptl/clinic-api/pkg/security"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

type App struct {
	Config   *config.Config
	DB       *sqlx.DB
	Router   *router.Router
	Users    *userservice.Service
	Registry *prometheus.Registry

	revoked revocation.Store
	logger  zerolog.Logger
}

type Option func(*options)

type options struct {
	now    func() time.Time
	client *http.Client
}

// WithClock replaces the wall clock used by the services.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithHTTPClient sets the client used for upstream drug lookups.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// OpenDB connects to the configured database and applies the schema when
// auto migration is enabled.
func OpenDB(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*sqlx.DB, error) {
	db, err := sqldb.NewDB(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := sqldb.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info().Str("driver", cfg.Driver).Msg("database schema is up to date")
	}
	return db, nil
}

// NewUserService builds the seeding service on db.
func NewUserService(db *sqlx.DB, cfg config.JWTConfig, logger zerolog.Logger) *userservice.Service {
	repo := sqldb.NewUserRepository(sqldb.NewBaseRepository(db))
	return userservice.NewService(repo, security.NewBcryptHasher(cfg.BcryptCost), logger)
}

func New(ctx context.Context, cfg *config.Config, db *sqlx.DB, logger zerolog.Logger, opts ...Option) (*App, error) {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	loc, err := cfg.Server.Location()
	if err != nil {
		return nil, err
	}

	revoked, err := newRevocationStore(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(cfg.Server.MetricsNamespace, reg)

	base := sqldb.NewBaseRepository(db)
	userRepo := sqldb.NewUserRepository(base)
	prescriptionRepo := sqldb.NewPrescriptionRepository(base)
	tx := sqldb.NewTransactor(db)

	validate := validator.New(o.now, loc)
	hasher := security.NewBcryptHasher(cfg.JWT.BcryptCost)
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry())

	authSvc := authservice.NewService(userRepo, jwtSvc, hasher, revoked, validate, m, logger)
	prescriptionSvc := prescription.NewService(
		prescriptionRepo,
		userRepo,
		tx,
		authSvc,
		validate,
		m,
		logger,
		prescription.WithClock(o.now),
		prescription.WithLocation(loc),
	)

	drugOpts := []druginteraction.Option{}
	if o.client != nil {
		drugOpts = append(drugOpts, druginteraction.WithHTTPClient(o.client))
	}
	drugSvc := druginteraction.NewService(druginteraction.Config{
		BaseURL:      cfg.DrugInteraction.BaseURL,
		DefaultRxCUI: cfg.DrugInteraction.DefaultRxCUI,
		Timeout:      cfg.DrugInteraction.Timeout,
		CacheTTL:     cfg.DrugInteraction.CacheTTL,
		Breaker:      cfg.DrugInteraction.Breaker,
	}, m, logger, drugOpts...)

	r := router.NewRouter(
		middleware.NewAuthMiddleware(authSvc),
		router.Handlers{
			Auth:            authhandler.NewHandler(authSvc),
			Prescription:    rxhandler.NewHandler(prescriptionSvc),
			DrugInteraction: drughandler.NewHandler(drugSvc),
			Health:          health.NewHandler(db),
		},
		router.RouterConfig{
			RateLimit:      rate.Limit(cfg.Server.RateLimit),
			RateBurst:      cfg.Server.RateBurst,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			RequestTimeout: cfg.Server.WriteTimeout,
			CORSConfig:     middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins...),
			Metrics:        m,
			Gatherer:       reg,
			Clock:          func() time.Time { return o.now().In(loc) },
		},
	)
	r.Setup()

	return &App{
		Config:   cfg,
		DB:       db,
		Router:   r,
		Users:    userservice.NewService(userRepo, hasher, logger),
		Registry: reg,
		revoked:  revoked,
		logger:   logger,
	}, nil
}

// Seed creates the configured default accounts when seeding is enabled.
func (a *App) Seed(ctx context.Context) error {
	if !a.Config.Seed.Enabled {
		return nil
	}
	created, err := a.Users.EnsureDefaultUsers(ctx, a.Config.Seed.Users)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	a.logger.Info().Int("created", created).Msg("default users ensured")
	return nil
}

// Close releases the revocation store. The database belongs to the caller.
func (a *App) Close() error {
	return a.revoked.Close()
}

func newRevocationStore(ctx context.Context, cfg revocation.RedisConfig, logger zerolog.Logger) (revocation.Store, error) {
	if cfg.URL == "" {
		logger.Info().Msg("using in-process token revocation store")
		return revocation.NewMemoryStore(10 * time.Minute), nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	store, err := revocation.NewRedisStore(pingCtx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("using redis token revocation store")
	return store, nil
}
