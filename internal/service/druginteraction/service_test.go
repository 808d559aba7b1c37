package druginteraction

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/pkg/circuitbreaker"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

const sampleBody = `{"nlmRxImpl":"false","interactionTypeGroup":[{"sourceName":"DrugBank"}]}`

func newTestService(t *testing.T, handler http.HandlerFunc, ttl time.Duration) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewService(Config{
		BaseURL:      srv.URL + "/REST/interaction/interaction.json",
		DefaultRxCUI: "341248",
		Timeout:      time.Second,
		CacheTTL:     ttl,
		Breaker: circuitbreaker.Settings{
			Name:             "test",
			MaxRequests:      1,
			Timeout:          time.Minute,
			FailureThreshold: 2,
		},
	}, metrics.NewMetrics("test", prometheus.NewRegistry()), zerolog.Nop())
}

func TestLookup_DefaultRxCUIAndPassthrough(t *testing.T) {
	var gotPath, gotRxCUI string
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRxCUI = r.URL.Query().Get("rxcui")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleBody))
	}, time.Minute)

	body, err := svc.Lookup(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "/REST/interaction/interaction.json", gotPath)
	assert.Equal(t, "341248", gotRxCUI)
	assert.JSONEq(t, sampleBody, string(body))
}

func TestLookup_CachesPerRxCUI(t *testing.T) {
	var calls int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(sampleBody))
	}, time.Minute)

	ctx := context.Background()
	_, err := svc.Lookup(ctx, "88014")
	require.NoError(t, err)
	_, err = svc.Lookup(ctx, "88014")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err = svc.Lookup(ctx, "341248")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestLookup_UpstreamFailure(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, time.Minute)

	_, err := svc.Lookup(context.Background(), "")
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindUnexpected, appErr.Kind)
	assert.Equal(t, "Failed to fetch drug interaction data: upstream returned 502", appErr.Message)
}

func TestLookup_InvalidJSONIsNotCached(t *testing.T) {
	var calls int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			_, _ = w.Write([]byte("<html>"))
			return
		}
		_, _ = w.Write([]byte(sampleBody))
	}, time.Minute)

	_, err := svc.Lookup(context.Background(), "")
	require.Error(t, err)

	body, err := svc.Lookup(context.Background(), "")
	require.NoError(t, err)
	assert.JSONEq(t, sampleBody, string(body))
}

func TestLookup_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var calls int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}, time.Minute)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := svc.Lookup(ctx, "")
		require.Error(t, err)
	}

	_, err := svc.Lookup(ctx, "")
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Message, circuitbreaker.ErrOpen.Error())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestLookup_CallerCancellationDoesNotTripBreaker(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleBody))
	}, 0)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 3; i++ {
		_, err := svc.Lookup(canceled, "")
		require.Error(t, err)
		assert.NotContains(t, err.Error(), circuitbreaker.ErrOpen.Error())
	}

	body, err := svc.Lookup(context.Background(), "")
	require.NoError(t, err)
	assert.JSONEq(t, sampleBody, string(body))
}

func TestLookup_RejectsNonNumericRxCUI(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream must not be called")
	}, time.Minute)

	_, err := svc.Lookup(context.Background(), "1&x=2")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidationFailed))
}
