package controllers

import (
	"net"
	"net/http"
	"strings"

	"github.com/mediayaseer-arch/questpark-backend/api/responses"
	"github.com/mediayaseer-arch/questpark-backend/api/validators"
	"github.com/mediayaseer-arch/questpark-backend/internal/botguard"
	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
)

type botVerifyPayload struct {
	BotToken      string `json:"botToken"`
	FormStartedAt int64  `json:"formStartedAt" validate:"required"`
	Website       string `json:"website"`
	FormContext   string `json:"formContext" validate:"required"`
}

// BotVerify lets the storefront pre-flight its challenge proof before the
// actual submission. Success is a bare 204; failures use the shared error
// envelope.
func BotVerify(guard *botguard.Guard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bot guard unavailable"))
			return
		}

		var payload botVerifyPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

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
		responses.WriteNoContent(w)
	}
}

func remoteIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
