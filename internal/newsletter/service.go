package newsletter

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Repo is the persistence surface the service needs.
type Repo interface {
	Create(ctx context.Context, subscriber *Subscriber) error
}

// Service handles newsletter signups.
type Service struct {
	repo Repo
	logg *logger.Logger
}

// NewService wires a Service.
func NewService(repo Repo, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Subscribe validates and stores a signup. Addresses are normalized to lower
// case so the uniqueness constraint is case-insensitive in practice.
func (s *Service) Subscribe(ctx context.Context, email string) (*Subscriber, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email address is invalid").
			WithDetails(map[string]string{"email": "email address is invalid"})
	}

	subscriber := &Subscriber{
		ID:    uuid.NewString(),
		Email: email,
	}
	if err := s.repo.Create(ctx, subscriber); err != nil {
		return nil, err
	}
	s.logg.Info(ctx, "newsletter subscriber added")
	return subscriber, nil
}
