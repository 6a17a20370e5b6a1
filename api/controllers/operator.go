package controllers

import (
	"context"
	"net/http"

	"github.com/mediayaseer-arch/questpark-backend/api/responses"
	"github.com/mediayaseer-arch/questpark-backend/api/validators"
	"github.com/mediayaseer-arch/questpark-backend/internal/operator"
	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
)

type operatorLoginPayload struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// OperatorService authenticates the dashboard operator.
type OperatorService interface {
	Login(ctx context.Context, email, password string) (*operator.Token, error)
}

// OperatorLogin checks the shared dashboard credential and mints a token.
func OperatorLogin(svc OperatorService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "operator service unavailable"))
			return
		}

		var payload operatorLoginPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		token, err := svc.Login(ctx, payload.Email, payload.Password)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, token)
	}
}
