package presence

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/mediayaseer-arch/questpark-backend/pkg/config"
	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
)

// Store is the slice of the Redis client presence needs.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	MGet(ctx context.Context, keys ...string) ([]any, error)
	SAdd(ctx context.Context, key string, members ...any) error
	SRem(ctx context.Context, key string, members ...any) error
	SMembers(ctx context.Context, key string) ([]string, error)
	PresenceKey(sessionID string) string
	PresenceSessionsKey() string
}

// Session is one live visitor session as reported by heartbeats. The
// submission id, when present, lets the dashboard overlay presence onto the
// submission the visitor is looking at.
type Session struct {
	ID           string `json:"sessionId"`
	Page         string `json:"page,omitempty"`
	SubmissionID string `json:"submissionId,omitempty"`
	LastSeenAt   string `json:"lastSeenAt"`
}

// HeartbeatInput is one storefront presence report.
type HeartbeatInput struct {
	SessionID    string
	Page         string
	SubmissionID string
}

// Snapshot is the live-visitor view served to the dashboard.
type Snapshot struct {
	Count    int       `json:"count"`
	Sessions []Session `json:"sessions"`
}

// Service tracks live storefront sessions. Each heartbeat refreshes a
// per-session key with a TTL; a session that stops beating ages out on its
// own and is pruned from the member set on the next read.
type Service struct {
	store Store
	cfg   config.PresenceConfig
	logg  *logger.Logger
	now   func() time.Time
}

// NewService wires a Service.
func NewService(store Store, cfg config.PresenceConfig, logg *logger.Logger) *Service {
	return &Service{store: store, cfg: cfg, logg: logg, now: time.Now}
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Heartbeat records that a session is alive, which page it is on, and which
// submission it is attached to, if any.
func (s *Service) Heartbeat(ctx context.Context, input HeartbeatInput) error {
	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" || len(sessionID) > 128 {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is invalid").
			WithDetails(map[string]string{"sessionId": "session id is invalid"})
	}

	session := Session{
		ID:           sessionID,
		Page:         input.Page,
		SubmissionID: strings.TrimSpace(input.SubmissionID),
		LastSeenAt:   s.now().UTC().Format(time.RFC3339Nano),
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to encode presence session")
	}
	if err := s.store.Set(ctx, s.store.PresenceKey(sessionID), payload, s.cfg.TTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to record heartbeat")
	}
	if err := s.store.SAdd(ctx, s.store.PresenceSessionsKey(), sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to register presence session")
	}
	return nil
}

// Snapshot returns the sessions whose heartbeat key is still alive. Members
// whose key has expired are removed from the set as a side effect.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	ids, err := s.store.SMembers(ctx, s.store.PresenceSessionsKey())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list presence sessions")
	}
	if len(ids) == 0 {
		return &Snapshot{Sessions: []Session{}}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.store.PresenceKey(id)
	}
	raws, err := s.store.MGet(ctx, keys...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load presence sessions")
	}

	sessions := make([]Session, 0, len(ids))
	var stale []any
	for i, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var session Session
		if err := json.Unmarshal([]byte(str), &session); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dropping malformed presence session")
			stale = append(stale, ids[i])
			continue
		}
		sessions = append(sessions, session)
	}
	if len(stale) > 0 {
		if err := s.store.SRem(ctx, s.store.PresenceSessionsKey(), stale...); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to prune stale presence sessions")
		}
	}
	return &Snapshot{Count: len(sessions), Sessions: sessions}, nil
}
