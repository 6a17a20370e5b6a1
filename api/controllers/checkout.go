package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mediayaseer-arch/questpark-backend/api/responses"
	"github.com/mediayaseer-arch/questpark-backend/api/validators"
	"github.com/mediayaseer-arch/questpark-backend/internal/botguard"
	"github.com/mediayaseer-arch/questpark-backend/internal/checkout"
	"github.com/mediayaseer-arch/questpark-backend/internal/checkout/flow"
	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
)

// CheckoutService is the checkout operations surface the controllers use.
type CheckoutService interface {
	Create(ctx context.Context, input checkout.CreateInput) (*checkout.Submission, error)
	Get(ctx context.Context, id string) (*checkout.Submission, error)
	List(ctx context.Context, limit int) ([]checkout.Submission, error)
	UpdateStatus(ctx context.Context, id string, update checkout.StatusUpdateInput) (*checkout.Submission, error)
	VerifyOTP(ctx context.Context, id, code string) error
	FlowStep(id string) (flow.Step, bool)
}

// checkoutCreatePayload carries the submission body plus the challenge-proof
// fields the guard consumes. The proof fields are checked and discarded, never
// persisted.
type checkoutCreatePayload struct {
	checkout.CreateInput
	BotToken      string `json:"botToken"`
	FormStartedAt int64  `json:"formStartedAt" validate:"required"`
	Website       string `json:"website"`
	FormContext   string `json:"formContext" validate:"required"`
}

// CheckoutCreate stores a new submission from the storefront. The bot guard
// runs against the embedded proof fields before anything is persisted.
func CheckoutCreate(svc CheckoutService, guard *botguard.Guard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutCreatePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if guard != nil {
			err := guard.Check(ctx, botguard.VerifyPayload{
				Token:         payload.BotToken,
				FormStartedAt: payload.FormStartedAt,
				Website:       payload.Website,
				FormContext:   payload.FormContext,
			}, remoteIP(r))
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		sub, err := svc.Create(ctx, payload.CreateInput)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sub)
	}
}

// CheckoutList returns recent submissions for the dashboard, newest first.
func CheckoutList(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		limit := 0
		if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
			value, err := strconv.Atoi(limitStr)
			if err != nil || value <= 0 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			limit = value
		}

		subs, err := svc.List(ctx, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		responses.WriteSuccess(w, subs)
	}
}

// CheckoutGet returns one submission together with its live flow step, when
// this process still holds one.
func CheckoutGet(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		id := chi.URLParam(r, "id")
		sub, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload := map[string]any{"submission": sub}
		if step, ok := svc.FlowStep(id); ok {
			payload["flowStep"] = step
		}
		w.Header().Set("Cache-Control", "no-store")
		responses.WriteSuccess(w, payload)
	}
}

// CheckoutUpdateStatus applies a dashboard review decision.
func CheckoutUpdateStatus(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var update checkout.StatusUpdateInput
		if err := validators.DecodeJSONBody(r, &update); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		sub, err := svc.UpdateStatus(ctx, chi.URLParam(r, "id"), update)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}

type verifyOTPPayload struct {
	Code string `json:"code" validate:"required"`
}

// CheckoutVerifyOTP accepts an OTP attempt. The verification settles
// asynchronously; the stream carries the outcome.
func CheckoutVerifyOTP(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload verifyOTPPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.VerifyOTP(ctx, chi.URLParam(r, "id"), payload.Code); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "verifying"})
	}
}
