package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/revocation"
)

type Config struct {
	Server          ServerConfig           `mapstructure:"server"`
	Database        DatabaseConfig         `mapstructure:"database"`
	JWT             JWTConfig              `mapstructure:"jwt"`
	Redis           revocation.RedisConfig `mapstructure:"redis"`
	DrugInteraction DrugInteractionConfig  `mapstructure:"drug_interaction"`
	Seed            SeedConfig             `mapstructure:"seed"`
	Log             logger.Config          `mapstructure:"log"`
}

type ServerConfig struct {
	Port             int           `mapstructure:"port"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
	Timezone         string        `mapstructure:"timezone"`
	RateLimit        float64       `mapstructure:"rate_limit"`
	RateBurst        int           `mapstructure:"rate_burst"`
	MaxBodyBytes     int64         `mapstructure:"max_body_bytes"`
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	MetricsNamespace string        `mapstructure:"metrics_namespace"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
	BcryptCost  int    `mapstructure:"bcrypt_cost"`
}

type DrugInteractionConfig struct {
	BaseURL      string                  `mapstructure:"base_url"`
	DefaultRxCUI string                  `mapstructure:"default_rxcui"`
	Timeout      time.Duration           `mapstructure:"timeout"`
	CacheTTL     time.Duration           `mapstructure:"cache_ttl"`
	Breaker      circuitbreaker.Settings `mapstructure:"breaker"`
}

type SeedConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Users   []model.SeedUser `mapstructure:"users"`
}

// env carries the secrets that deployments inject through plain variables
// rather than the CLINIC_ prefixed keys viper understands.
type env struct {
	DatabaseDSN string `envconfig:"DATABASE_DSN"`
	DBHost      string `envconfig:"DB_HOST"`
	DBPort      int    `envconfig:"DB_PORT"`
	DBPassword  string `envconfig:"DB_PASSWORD"`
	JWTSecret   string `envconfig:"JWT_SECRET"`
	RedisURL    string `envconfig:"REDIS_URL"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.timezone", "Local")
	v.SetDefault("server.rate_limit", 100.0)
	v.SetDefault("server.rate_burst", 200)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.metrics_namespace", "clinic")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "prescription_db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "clinic-api")
	v.SetDefault("jwt.expiry_hours", 24)
	v.SetDefault("jwt.bcrypt_cost", 10)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.min_idle_conns", 0)

	v.SetDefault("drug_interaction.base_url", "https://rxnav.nlm.nih.gov/REST/interaction/interaction.json")
	v.SetDefault("drug_interaction.default_rxcui", "341248")
	v.SetDefault("drug_interaction.timeout", 10*time.Second)
	v.SetDefault("drug_interaction.cache_ttl", 30*time.Minute)
	v.SetDefault("drug_interaction.breaker.name", "rxnav")
	v.SetDefault("drug_interaction.breaker.max_requests", 1)
	v.SetDefault("drug_interaction.breaker.interval", time.Minute)
	v.SetDefault("drug_interaction.breaker.timeout", 30*time.Second)
	v.SetDefault("drug_interaction.breaker.failure_threshold", 5)

	v.SetDefault("seed.enabled", true)
	v.SetDefault("seed.users", []map[string]interface{}{
		{
			"username":  "doctor",
			"password":  "password123",
			"full_name": "Dr. John Doe",
			"email":     "doctor@cmedhealth.com",
			"role":      model.RoleUser,
		},
		{
			"username":  "admin",
			"password":  "admin123",
			"full_name": "Admin User",
			"email":     "admin@cmedhealth.com",
			"role":      model.RoleAdmin,
		},
	})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig reads config.yaml (optional), CLINIC_ prefixed environment
// variables and the plain secret variables, in increasing precedence.
// A .env file in the working directory is loaded into the environment first.
func LoadConfig(paths ...string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/app/config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("CLINIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var overrides env
	if err := envconfig.Process("", &overrides); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	config.applyEnv(overrides)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv(e env) {
	if e.DatabaseDSN != "" {
		c.Database.DSN = e.DatabaseDSN
	}
	if e.DBHost != "" {
		c.Database.Host = e.DBHost
	}
	if e.DBPort != 0 {
		c.Database.Port = e.DBPort
	}
	if e.DBPassword != "" {
		c.Database.Password = e.DBPassword
	}
	if e.JWTSecret != "" {
		c.JWT.Secret = e.JWTSecret
	}
	if e.RedisURL != "" {
		c.Redis.URL = e.RedisURL
	}
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required (set JWT_SECRET)")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if _, err := c.Server.Location(); err != nil {
		return err
	}
	return nil
}

// Location is the time zone in which "today" is evaluated.
func (s ServerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid server timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// DataSourceName returns the configured DSN, or builds a PostgreSQL one
// from the discrete connection fields.
func (d DatabaseConfig) DataSourceName() string {
	if d.DSN != "" {
		return d.DSN
	}
	if d.Driver == "sqlite" {
		return "file:clinic.db?_pragma=foreign_keys(1)"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

func (j JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}
