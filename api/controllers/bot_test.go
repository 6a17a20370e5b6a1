package controllers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mediayaseer-arch/questpark-backend/internal/botguard"
	"github.com/mediayaseer-arch/questpark-backend/pkg/config"
)

func relaxedGuard() *botguard.Guard {
	cfg := config.BotConfig{
		MinFillTime: 1500 * time.Millisecond,
		MaxFormAge:  45 * time.Minute,
	}
	return botguard.NewGuard(cfg, false, nil, testLogger())
}

func TestBotVerify(t *testing.T) {
	startedAt := time.Now().Add(-10 * time.Second).UnixMilli()

	t.Run("accepts a plausible payload", func(t *testing.T) {
		body := fmt.Sprintf(`{"formStartedAt": %d, "formContext": "checkout"}`, startedAt)
		req := httptest.NewRequest(http.MethodPost, "/api/bot/verify", strings.NewReader(body))
		rec := httptest.NewRecorder()
		BotVerify(relaxedGuard(), testLogger()).ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("rejects honeypot fills", func(t *testing.T) {
		body := fmt.Sprintf(`{"formStartedAt": %d, "formContext": "checkout", "website": "spam.example"}`, startedAt)
		req := httptest.NewRequest(http.MethodPost, "/api/bot/verify", strings.NewReader(body))
		rec := httptest.NewRecorder()
		BotVerify(relaxedGuard(), testLogger()).ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("rejects instant submissions", func(t *testing.T) {
		body := fmt.Sprintf(`{"formStartedAt": %d, "formContext": "checkout"}`, time.Now().UnixMilli())
		req := httptest.NewRequest(http.MethodPost, "/api/bot/verify", strings.NewReader(body))
		rec := httptest.NewRecorder()
		BotVerify(relaxedGuard(), testLogger()).ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("rejects payloads without a form context", func(t *testing.T) {
		body := fmt.Sprintf(`{"formStartedAt": %d}`, startedAt)
		req := httptest.NewRequest(http.MethodPost, "/api/bot/verify", strings.NewReader(body))
		rec := httptest.NewRecorder()
		BotVerify(relaxedGuard(), testLogger()).ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
