package druginteraction

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-api/pkg/circuitbreaker"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// maxBodyBytes bounds how much of an upstream answer is buffered.
const maxBodyBytes = 4 << 20

type Config struct {
	BaseURL      string
	DefaultRxCUI string
	Timeout      time.Duration
	CacheTTL     time.Duration
	Breaker      circuitbreaker.Settings
}

// Service proxies RxNav interaction lookups. Successful answers are cached
// per rxcui and returned to callers byte for byte.
type Service struct {
	cfg     Config
	client  *http.Client
	cache   *cache.Cache
	breaker *circuitbreaker.CircuitBreaker
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

type Option func(*Service)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

func NewService(cfg Config, m *metrics.Metrics, logger zerolog.Logger, opts ...Option) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	s := &Service{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		cache:   cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		breaker: circuitbreaker.NewCircuitBreaker(cfg.Breaker),
		metrics: m,
		logger:  logger.With().Str("component", "drug_interaction").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup returns the upstream interaction document for rxcui, or for the
// configured default when rxcui is empty.
func (s *Service) Lookup(ctx context.Context, rxcui string) (json.RawMessage, error) {
	rxcui = strings.TrimSpace(rxcui)
	if rxcui == "" {
		rxcui = s.cfg.DefaultRxCUI
	}
	if !isNumeric(rxcui) {
		return nil, apperrors.ValidationFailed([]string{"rxcui: must be numeric"})
	}

	if cached, ok := s.cache.Get(rxcui); ok {
		s.metrics.DrugLookups.WithLabelValues("cache", "success").Inc()
		return cached.(json.RawMessage), nil
	}

	var body json.RawMessage
	start := time.Now()
	err := s.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		var err error
		body, err = s.fetch(ctx, rxcui)
		return err
	})
	s.metrics.DrugLookupLatency.Observe(time.Since(start).Seconds())
	s.metrics.DrugLookups.WithLabelValues("upstream", metrics.Outcome(err)).Inc()

	if err != nil {
		s.logger.Error().Err(err).Str("rxcui", rxcui).Str("breaker", s.breaker.State()).Msg("drug interaction lookup failed")
		return nil, apperrors.Unexpected("Failed to fetch drug interaction data: "+err.Error(), err)
	}

	if s.cfg.CacheTTL > 0 {
		s.cache.Set(rxcui, body, cache.DefaultExpiration)
	}
	return body, nil
}

func (s *Service) fetch(ctx context.Context, rxcui string) (json.RawMessage, error) {
	endpoint, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	q := endpoint.Query()
	q.Set("rxcui", rxcui)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("upstream returned invalid JSON")
	}
	return json.RawMessage(data), nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
