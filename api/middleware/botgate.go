package middleware

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/mediayaseer-arch/questpark-backend/api/responses"
	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
	"github.com/mediayaseer-arch/questpark-backend/pkg/metrics"
)

// blockedUserAgents matches scripted clients and scanners that have no
// business on the storefront API.
var blockedUserAgents = regexp.MustCompile(`(?i)curl|wget|python-requests|libwww-perl|scrapy|go-http-client|httpclient|postmanruntime|insomnia|nikto|sqlmap|nmap|masscan`)

// BotGate applies the cheap header heuristics to mutating requests before
// they reach the handlers: user-agent blocklist, fetch-metadata, and origin
// checks. The payload-level checks run inside the handlers via the guard.
func BotGate(allowedOrigins []string, httpMetrics *metrics.HTTPMetrics, logg *logger.Logger) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[strings.ToLower(strings.TrimRight(origin, "/"))] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if reason := headerVerdict(r, allowed); reason != "" {
				httpMetrics.IncBotBlocked(reason)
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"reason":     reason,
						"user_agent": r.UserAgent(),
						"ip":         clientIP(r),
					})
					logg.Warn(logCtx, "botgate.blocked")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeForbidden, "request rejected"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func headerVerdict(r *http.Request, allowedOrigins map[string]bool) string {
	// Reads are left alone; only state-changing requests carry enough
	// intent to be worth rejecting on header heuristics.
	if !mutating(r.Method) {
		return ""
	}

	ua := r.UserAgent()
	if ua == "" {
		return "missing user agent"
	}
	if blockedUserAgents.MatchString(ua) {
		return "blocked user agent"
	}

	if site := strings.ToLower(r.Header.Get("Sec-Fetch-Site")); site == "cross-site" {
		return "cross-site fetch"
	}

	origin := strings.ToLower(strings.TrimRight(r.Header.Get("Origin"), "/"))
	if origin == "" || origin == "null" {
		return ""
	}
	if allowedOrigins[origin] {
		return ""
	}
	if parsed, err := url.Parse(origin); err == nil && parsed.Host == r.Host {
		return ""
	}
	return "origin mismatch"
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
