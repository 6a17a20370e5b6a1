package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mediayaseer-arch/questpark-backend/pkg/config"
)

type fakeLimiterStore struct {
	counts map[string]int64
	err    error
	limit  int64
}

func newFakeLimiterStore() *fakeLimiterStore {
	return &fakeLimiterStore{counts: map[string]int64{}}
}

func (s *fakeLimiterStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if s.err != nil {
		return false, 0, s.err
	}
	s.counts[scope]++
	return s.counts[scope] <= limit, s.counts[scope], nil
}

func TestRateLimitAllowsUnderLimit(t *testing.T) {
	store := newFakeLimiterStore()
	policy := NewRateLimitPolicy("api", time.Minute, 3)
	handler := RateLimit(policy, store, testLogger())(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimitScopesByClientIP(t *testing.T) {
	store := newFakeLimiterStore()
	policy := NewRateLimitPolicy("api", time.Minute, 1)
	handler := RateLimit(policy, store, testLogger())(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
	first.Header.Set("X-Forwarded-For", "203.0.113.10")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	second := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
	second.Header.Set("X-Forwarded-For", "203.0.113.11")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	require.Equal(t, http.StatusOK, rec.Code)

	third := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
	third.Header.Set("X-Forwarded-For", "203.0.113.10")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, third)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimitFailsClosedOnStoreError(t *testing.T) {
	store := newFakeLimiterStore()
	store.err = errors.New("connection refused")
	policy := NewRateLimitPolicy("api", time.Minute, 10)
	handler := RateLimit(policy, store, testLogger())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := newFakeLimiterStore()
	policy := NewRateLimitPolicy("api", 0, 0)
	handler := RateLimit(policy, store, testLogger())(okHandler())

	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestPoliciesFromConfig(t *testing.T) {
	cfg := config.RateLimitConfig{
		Window:          time.Minute,
		GlobalLimit:     400,
		APILimit:        100,
		SensitiveWindow: 10 * time.Minute,
		SensitiveLimit:  8,
		DevMultiplier:   10,
	}

	t.Run("production keeps configured limits", func(t *testing.T) {
		app := config.AppConfig{Env: config.AppEnvProd}
		global, api, sensitive := PoliciesFromConfig(cfg, app)
		require.Equal(t, 400, global.limit)
		require.Equal(t, 100, api.limit)
		require.Equal(t, 8, sensitive.limit)
		require.Equal(t, 10*time.Minute, sensitive.window)
	})

	t.Run("development applies the multiplier", func(t *testing.T) {
		app := config.AppConfig{Env: config.AppEnvDev}
		global, api, sensitive := PoliciesFromConfig(cfg, app)
		require.Equal(t, 4000, global.limit)
		require.Equal(t, 1000, api.limit)
		require.Equal(t, 80, sensitive.limit)
	})
}
