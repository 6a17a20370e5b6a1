package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mediayaseer-arch/questpark-backend/internal/checkout/flow"
	"github.com/mediayaseer-arch/questpark-backend/internal/realtime"
	"github.com/mediayaseer-arch/questpark-backend/internal/tickets"
	"github.com/mediayaseer-arch/questpark-backend/pkg/config"
	"github.com/mediayaseer-arch/questpark-backend/pkg/enums"
	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
)

// Broadcaster pushes checkout events to the dashboard stream.
type Broadcaster interface {
	Broadcast(ctx context.Context, event realtime.Event)
}

// Repo is the persistence surface the service needs.
type Repo interface {
	Create(ctx context.Context, input CreateInput) (*Submission, error)
	Get(ctx context.Context, id string) (*Submission, error)
	List(ctx context.Context, limit int) ([]Submission, error)
	UpdateStatus(ctx context.Context, id string, update StatusUpdateInput) (*Submission, error)
}

// Service implements the checkout operations: storefront submission, the
// dashboard listing and review decisions, and the simulated OTP verification.
type Service struct {
	repo  Repo
	hub   Broadcaster
	flows *flow.Coordinator
	cfg   config.CheckoutConfig
	logg  *logger.Logger
	now   func() time.Time
}

// NewService wires a Service. The flow coordinator's verification outcome is
// bound here so a settled OTP attempt is persisted and broadcast.
func NewService(repo Repo, hub Broadcaster, cfg config.CheckoutConfig, sched flow.Scheduler, logg *logger.Logger) *Service {
	s := &Service{
		repo: repo,
		hub:  hub,
		cfg:  cfg,
		logg: logg,
		now:  time.Now,
	}
	s.flows = flow.NewCoordinator(flow.Options{
		Scheduler:     sched,
		ApprovalDelay: cfg.ApprovalDelay,
		VerifyDelay:   cfg.OTPVerifyDelay,
		Outcome:       s.onVerifyOutcome,
	})
	return s
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Flows exposes the coordinator for shutdown wiring.
func (s *Service) Flows() *flow.Coordinator {
	return s.flows
}

// Create validates and stores a submission, starts its review flow, and
// announces it on the stream. Validation rejects totals that disagree with
// the catalog; the recompute below canonicalizes names and money before
// anything is persisted.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Submission, error) {
	if err := Validate(input, s.now()); err != nil {
		return nil, err
	}

	// Server-side figures win even after validation passed.
	for i := range input.Items {
		product, _ := tickets.ProductByID(input.Items[i].ID)
		input.Items[i].Name = product.Name
		input.Items[i].UnitPrice = product.UnitPrice
		input.Items[i].LineTotal = product.UnitPrice.Mul(decimal.NewFromInt(int64(input.Items[i].Quantity)))
	}
	input.Subtotal = tickets.Subtotal(input.Items)
	input.Total = input.Subtotal

	sub, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithSubmissionID(ctx, sub.ID)
	s.logg.Info(ctx, "checkout submission created")

	// pending_review waits for a human decision; otp_requested walks the
	// timed path and reveals the OTP step on its own.
	s.flows.Begin(sub.ID, sub.Payment.Status == enums.CheckoutStatusOTPRequested)
	s.broadcast(ctx, sub)
	return sub, nil
}

// Get loads one submission.
func (s *Service) Get(ctx context.Context, id string) (*Submission, error) {
	return s.repo.Get(ctx, id)
}

// List returns recent submissions for the dashboard, newest first, capped at
// the configured listing limit.
func (s *Service) List(ctx context.Context, limit int) ([]Submission, error) {
	if limit <= 0 || limit > s.cfg.ListLimit {
		limit = s.cfg.ListLimit
	}
	return s.repo.List(ctx, limit)
}

// UpdateStatus applies a dashboard review decision and fans the change out.
func (s *Service) UpdateStatus(ctx context.Context, id string, update StatusUpdateInput) (*Submission, error) {
	if !update.Status.IsUpdate() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status cannot be applied via update").
			WithDetails(map[string]string{"status": "status cannot be applied via update"})
	}
	sub, err := s.repo.UpdateStatus(ctx, id, update)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithSubmissionID(ctx, sub.ID)
	s.logg.Info(ctx, "checkout status updated")

	errorMessage := ""
	if update.ErrorMessage != nil {
		errorMessage = *update.ErrorMessage
	}
	s.flows.Observe(id, update.Status, errorMessage)
	s.broadcast(ctx, sub)
	return sub, nil
}

// FlowStep reports the live flow position for a submission in this process.
func (s *Service) FlowStep(id string) (flow.Step, bool) {
	return s.flows.Step(id)
}

// VerifyOTP starts the simulated verification for a submission. The result
// arrives asynchronously after the configured delay and always fails; there
// is no card issuer behind this system.
func (s *Service) VerifyOTP(ctx context.Context, id, code string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return s.flows.StartVerify(ctx, id, code)
}

func (s *Service) onVerifyOutcome(ctx context.Context, id, code string, verified bool, errorMessage string) {
	status := enums.CheckoutStatusOTPFailed
	if verified {
		status = enums.CheckoutStatusOTPVerified
	}
	update := StatusUpdateInput{Status: status, OTPCode: &code}
	if !verified {
		update.ErrorMessage = &errorMessage
	}
	sub, err := s.repo.UpdateStatus(ctx, id, update)
	if err != nil {
		s.logg.Error(s.logg.WithSubmissionID(ctx, id), "failed to persist otp verification outcome", err)
		return
	}
	s.broadcast(s.logg.WithSubmissionID(ctx, id), sub)
}

func (s *Service) broadcast(ctx context.Context, sub *Submission) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(ctx, realtime.Event{
		Type:         realtime.EventCheckoutChanged,
		SubmissionID: sub.ID,
		Status:       sub.Payment.Status,
		At:           sub.UpdatedAt,
	})
}
