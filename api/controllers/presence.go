package controllers

import (
	"context"
	"net/http"

	"github.com/mediayaseer-arch/questpark-backend/api/responses"
	"github.com/mediayaseer-arch/questpark-backend/api/validators"
	"github.com/mediayaseer-arch/questpark-backend/internal/presence"
	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
)

type presenceHeartbeatPayload struct {
	SessionID    string `json:"sessionId" validate:"required"`
	Page         string `json:"page"`
	SubmissionID string `json:"submissionId"`
}

// PresenceService tracks live visitor sessions.
type PresenceService interface {
	Heartbeat(ctx context.Context, input presence.HeartbeatInput) error
	Snapshot(ctx context.Context) (*presence.Snapshot, error)
}

// PresenceHeartbeat records a storefront session heartbeat.
func PresenceHeartbeat(svc PresenceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "presence service unavailable"))
			return
		}

		var payload presenceHeartbeatPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		err := svc.Heartbeat(ctx, presence.HeartbeatInput{
			SessionID:    payload.SessionID,
			Page:         payload.Page,
			SubmissionID: payload.SubmissionID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// PresenceSnapshot returns the live visitor sessions for the dashboard.
func PresenceSnapshot(svc PresenceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "presence service unavailable"))
			return
		}

		snapshot, err := svc.Snapshot(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}
