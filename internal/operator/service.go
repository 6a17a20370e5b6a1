package operator

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mediayaseer-arch/questpark-backend/pkg/config"
	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
	"github.com/mediayaseer-arch/questpark-backend/pkg/security"
)

// Token is a minted dashboard session.
type Token struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Service authenticates the review-dashboard operator. There is a single
// shared operator credential; the password is stored as an argon2id hash.
type Service struct {
	cfg  config.OperatorConfig
	logg *logger.Logger
	now  func() time.Time
}

// NewService wires a Service.
func NewService(cfg config.OperatorConfig, logg *logger.Logger) *Service {
	return &Service{cfg: cfg, logg: logg, now: time.Now}
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Login checks the operator credential and mints a bearer token. Both
// failure modes return the same opaque error so the endpoint does not leak
// whether the email exists.
func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	invalid := pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")

	if !strings.EqualFold(strings.TrimSpace(email), s.cfg.Email) {
		return nil, invalid
	}
	ok, err := security.VerifyPassword(password, s.cfg.PasswordHash)
	if err != nil {
		s.logg.Error(ctx, "operator password hash is unusable", err)
		return nil, invalid
	}
	if !ok {
		return nil, invalid
	}

	now := s.now()
	expiresAt := now.Add(s.cfg.TokenTTL())
	claims := jwt.RegisteredClaims{
		Subject:   s.cfg.Email,
		Issuer:    s.cfg.JWTIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to sign operator token")
	}

	s.logg.Info(ctx, "operator logged in")
	return &Token{AccessToken: signed, ExpiresAt: expiresAt}, nil
}

// VerifyToken validates a bearer token and returns the operator identity.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithIssuer(s.cfg.JWTIssuer), jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !token.Valid {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid or expired token")
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "token has no subject")
	}
	return claims.Subject, nil
}
