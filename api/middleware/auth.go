package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mediayaseer-arch/questpark-backend/api/responses"
	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
)

type contextKey string

const ctxOperator contextKey = "operator"

// TokenVerifier checks a dashboard bearer token and returns the operator
// identity it was issued to.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// OperatorAuth guards the dashboard endpoints with the operator bearer token.
func OperatorAuth(verifier TokenVerifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			operator, err := verifier.VerifyToken(token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxOperator, operator)
			if logg != nil {
				ctx = logg.WithField(ctx, "operator", operator)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OperatorFromContext returns the authenticated operator identity, if any.
func OperatorFromContext(ctx context.Context) (string, bool) {
	operator, ok := ctx.Value(ctxOperator).(string)
	return operator, ok && operator != ""
}
