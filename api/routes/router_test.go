package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/mediayaseer-arch/questpark-backend/internal/checkout"
	"github.com/mediayaseer-arch/questpark-backend/internal/checkout/flow"
	"github.com/mediayaseer-arch/questpark-backend/internal/newsletter"
	"github.com/mediayaseer-arch/questpark-backend/internal/operator"
	"github.com/mediayaseer-arch/questpark-backend/internal/presence"
	"github.com/mediayaseer-arch/questpark-backend/internal/realtime"
	"github.com/mediayaseer-arch/questpark-backend/pkg/config"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
	"github.com/mediayaseer-arch/questpark-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubCheckoutService struct{}

func (stubCheckoutService) Create(context.Context, checkout.CreateInput) (*checkout.Submission, error) {
	return &checkout.Submission{ID: "sub-1"}, nil
}

func (stubCheckoutService) Get(context.Context, string) (*checkout.Submission, error) {
	return &checkout.Submission{ID: "sub-1"}, nil
}

func (stubCheckoutService) List(context.Context, int) ([]checkout.Submission, error) {
	return nil, nil
}

func (stubCheckoutService) UpdateStatus(context.Context, string, checkout.StatusUpdateInput) (*checkout.Submission, error) {
	return &checkout.Submission{ID: "sub-1"}, nil
}

func (stubCheckoutService) VerifyOTP(context.Context, string, string) error { return nil }

func (stubCheckoutService) FlowStep(string) (flow.Step, bool) { return "", false }

type stubEventSource struct{}

func (stubEventSource) Subscribe() (<-chan realtime.Event, func()) {
	ch := make(chan realtime.Event)
	return ch, func() {}
}

type stubPresenceService struct{}

func (stubPresenceService) Heartbeat(context.Context, presence.HeartbeatInput) error { return nil }

func (stubPresenceService) Snapshot(context.Context) (*presence.Snapshot, error) {
	return &presence.Snapshot{Sessions: []presence.Session{}}, nil
}

type stubNewsletterService struct{}

func (stubNewsletterService) Subscribe(context.Context, string) (*newsletter.Subscriber, error) {
	return &newsletter.Subscriber{}, nil
}

type stubOperatorService struct{}

func (stubOperatorService) Login(context.Context, string, string) (*operator.Token, error) {
	return &operator.Token{AccessToken: "jwt"}, nil
}

type stubTokenVerifier struct{ err error }

func (s stubTokenVerifier) VerifyToken(string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "ops@example.com", nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.Realtime.HeartbeatInterval = 25 * time.Second
	return cfg
}

func newTestRouter(verifierErr error) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: zerolog.ErrorLevel, Output: io.Discard})
	return NewRouter(Dependencies{
		Config:            testConfig(),
		Logger:            logg,
		DBPinger:          stubPinger{},
		Metrics:           metrics.NewHTTPMetrics(prometheus.NewRegistry()),
		Registry:          prometheus.NewRegistry(),
		CheckoutService:   stubCheckoutService{},
		EventSource:       stubEventSource{},
		PresenceService:   stubPresenceService{},
		NewsletterService: stubNewsletterService{},
		OperatorService:   stubOperatorService{},
		TokenVerifier:     stubTokenVerifier{err: verifierErr},
	})
}

func browserRequest(method, target string, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")
	return req
}

func TestHealthLiveRoute(t *testing.T) {
	router := newTestRouter(nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	router := newTestRouter(nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestTicketCatalogRoute(t *testing.T) {
	router := newTestRouter(nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, browserRequest(http.MethodGet, "/api/tickets", ""))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestBotGateBlocksScriptedClients(t *testing.T) {
	router := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/bot/verify", nil)
	req.Header.Set("User-Agent", "curl/8.4.0")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for scripted client got %d", resp.Code)
	}
}

func TestDashboardRoutesRejectMissingToken(t *testing.T) {
	router := newTestRouter(errors.New("no token"))
	targets := []string{
		"/api/checkout/submissions",
		"/api/presence",
	}
	for _, target := range targets {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, browserRequest(http.MethodGet, target, ""))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s got %d", target, resp.Code)
		}
	}
}

func TestDashboardRoutesAcceptToken(t *testing.T) {
	router := newTestRouter(nil)
	req := browserRequest(http.MethodGet, "/api/checkout/submissions", "")
	req.Header.Set("Authorization", "Bearer token-123")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCheckoutGetRouteIsPublic(t *testing.T) {
	router := newTestRouter(errors.New("no token"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, browserRequest(http.MethodGet, "/api/checkout/submissions/sub-1", ""))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCheckoutCreateRouteRejectsBadJSON(t *testing.T) {
	router := newTestRouter(nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, browserRequest(http.MethodPost, "/api/checkout/submissions", "{not json"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
