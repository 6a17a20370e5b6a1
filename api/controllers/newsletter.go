package controllers

import (
	"context"
	"net/http"

	"github.com/mediayaseer-arch/questpark-backend/api/responses"
	"github.com/mediayaseer-arch/questpark-backend/api/validators"
	"github.com/mediayaseer-arch/questpark-backend/internal/newsletter"
	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
)

type newsletterSubscribePayload struct {
	Email string `json:"email" validate:"required"`
}

// NewsletterService handles signups.
type NewsletterService interface {
	Subscribe(ctx context.Context, email string) (*newsletter.Subscriber, error)
}

// NewsletterSubscribe stores a newsletter signup.
func NewsletterSubscribe(svc NewsletterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "newsletter service unavailable"))
			return
		}

		var payload newsletterSubscribePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		subscriber, err := svc.Subscribe(ctx, payload.Email)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, subscriber)
	}
}
