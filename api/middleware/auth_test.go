package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubTokenVerifier struct {
	operator string
	err      error
	seen     string
}

func (s *stubTokenVerifier) VerifyToken(token string) (string, error) {
	s.seen = token
	if s.err != nil {
		return "", s.err
	}
	return s.operator, nil
}

func TestOperatorAuth(t *testing.T) {
	t.Run("valid bearer token", func(t *testing.T) {
		verifier := &stubTokenVerifier{operator: "ops@example.com"}
		var gotOperator string
		handler := OperatorAuth(verifier, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotOperator, _ = OperatorFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/checkout/submissions", nil)
		req.Header.Set("Authorization", "Bearer token-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "token-123", verifier.seen)
		require.Equal(t, "ops@example.com", gotOperator)
	})

	t.Run("missing header", func(t *testing.T) {
		handler := OperatorAuth(&stubTokenVerifier{}, testLogger())(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/checkout/submissions", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("blank header", func(t *testing.T) {
		handler := OperatorAuth(&stubTokenVerifier{}, testLogger())(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/checkout/submissions", nil)
		req.Header.Set("Authorization", "   ")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejected token", func(t *testing.T) {
		verifier := &stubTokenVerifier{err: errors.New("token is expired")}
		handler := OperatorAuth(verifier, testLogger())(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/checkout/submissions", nil)
		req.Header.Set("Authorization", "Bearer stale")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("raw token without scheme", func(t *testing.T) {
		verifier := &stubTokenVerifier{operator: "ops@example.com"}
		handler := OperatorAuth(verifier, testLogger())(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/checkout/submissions", nil)
		req.Header.Set("Authorization", "token-raw")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "token-raw", verifier.seen)
	})
}

func TestOperatorFromContextEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := OperatorFromContext(req.Context())
	require.False(t, ok)
}
