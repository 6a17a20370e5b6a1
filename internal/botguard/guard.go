package botguard

import (
	"context"
	"strings"
	"time"

	"github.com/mediayaseer-arch/questpark-backend/pkg/config"
	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
)

// VerifyPayload is the challenge proof the storefront sends before a
// sensitive write. Website is a honeypot field. Any real browser leaves it
// empty; autofill bots do not.
type VerifyPayload struct {
	Token         string `json:"botToken"`
	FormStartedAt int64  `json:"formStartedAt"`
	Website       string `json:"website"`
	FormContext   string `json:"formContext"`
}

// Guard applies the submission-time bot checks: honeypot, fill timing, and
// the Turnstile token. Header heuristics run earlier in the middleware chain.
type Guard struct {
	cfg      config.BotConfig
	strict   bool
	verifier TokenVerifier
	logg     *logger.Logger
	now      func() time.Time
}

// NewGuard wires a Guard. Strict mode is decided once at startup from the
// runtime environment.
func NewGuard(cfg config.BotConfig, strict bool, verifier TokenVerifier, logg *logger.Logger) *Guard {
	return &Guard{
		cfg:      cfg,
		strict:   strict,
		verifier: verifier,
		logg:     logg,
		now:      time.Now,
	}
}

// WithClock overrides the guard clock. Test hook.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// Strict reports whether token verification is mandatory.
func (g *Guard) Strict() bool {
	return g.strict
}

// Check evaluates a challenge payload. A nil return means the caller may
// proceed with the protected write.
func (g *Guard) Check(ctx context.Context, payload VerifyPayload, remoteIP string) error {
	if strings.TrimSpace(payload.Website) != "" {
		return pkgerrors.New(pkgerrors.CodeForbidden, "request rejected")
	}

	if payload.FormStartedAt <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "challenge payload is malformed").
			WithDetails(map[string]string{"formStartedAt": "is required"})
	}
	elapsed := g.now().Sub(time.UnixMilli(payload.FormStartedAt))
	if elapsed < g.cfg.MinFillTime {
		return pkgerrors.New(pkgerrors.CodeForbidden, "form submitted too quickly")
	}
	if elapsed > g.cfg.MaxFormAge {
		return pkgerrors.New(pkgerrors.CodeForbidden, "form session has expired")
	}

	return g.checkToken(ctx, payload.Token, remoteIP)
}

func (g *Guard) checkToken(ctx context.Context, token, remoteIP string) error {
	if g.cfg.TurnstileSecret == "" {
		if g.strict {
			return pkgerrors.New(pkgerrors.CodeDependency, "challenge verification is not configured")
		}
		return nil
	}
	if token == "" {
		if g.strict {
			return pkgerrors.New(pkgerrors.CodeForbidden, "challenge token is required")
		}
		return nil
	}

	result, err := g.verifier.Verify(ctx, token, remoteIP)
	if err != nil {
		g.logg.Warn(g.logg.WithField(ctx, "error", err.Error()), "challenge verification unavailable")
		if g.strict {
			return pkgerrors.New(pkgerrors.CodeForbidden, "challenge verification failed")
		}
		return nil
	}
	if !result.Success {
		return pkgerrors.New(pkgerrors.CodeForbidden, "challenge verification failed")
	}
	if len(g.cfg.TurnstileHostnames) > 0 && !hostnameAllowed(result.Hostname, g.cfg.TurnstileHostnames) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "challenge solved on an unexpected hostname")
	}
	return nil
}

func hostnameAllowed(hostname string, allowed []string) bool {
	for _, candidate := range allowed {
		if strings.EqualFold(hostname, candidate) {
			return true
		}
	}
	return false
}
