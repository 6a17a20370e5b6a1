package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mediayaseer-arch/questpark-backend/internal/checkout/flow"
	"github.com/mediayaseer-arch/questpark-backend/internal/realtime"
	"github.com/mediayaseer-arch/questpark-backend/pkg/config"
	"github.com/mediayaseer-arch/questpark-backend/pkg/enums"
	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
)

type captureHub struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (h *captureHub) Broadcast(_ context.Context, event realtime.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *captureHub) all() []realtime.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]realtime.Event(nil), h.events...)
}

type manualTimer struct {
	f       func()
	stopped bool
}

type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(_ time.Duration, f func()) flow.CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{f: f}
	s.timers = append(s.timers, t)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		t.stopped = true
	}
}

func (s *manualScheduler) fire() {
	s.mu.Lock()
	pending := s.timers
	s.timers = nil
	s.mu.Unlock()
	for _, t := range pending {
		if !t.stopped {
			t.f()
		}
	}
}

func newTestService() (*Service, *captureHub, *manualScheduler) {
	store := newMemStore()
	repo := newTestRepository(store)
	hub := &captureHub{}
	sched := &manualScheduler{}
	cfg := config.CheckoutConfig{
		ListLimit:      300,
		HistoryLimit:   50,
		ApprovalDelay:  5 * time.Second,
		OTPVerifyDelay: 5 * time.Second,
	}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel})
	svc := NewService(repo, hub, cfg, sched, logg).WithClock(func() time.Time { return testNow })
	return svc, hub, sched
}

func TestServiceCreateStoresCatalogTotals(t *testing.T) {
	svc, hub, _ := newTestService()

	sub, err := svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)
	require.True(t, sub.Subtotal.Equal(decimal.NewFromInt(280)), sub.Subtotal.String())
	require.True(t, sub.Total.Equal(decimal.NewFromInt(280)))
	require.True(t, sub.Items[0].LineTotal.Equal(decimal.NewFromInt(200)))

	events := hub.all()
	require.Len(t, events, 1)
	require.Equal(t, realtime.EventCheckoutChanged, events[0].Type)
	require.Equal(t, sub.ID, events[0].SubmissionID)
	require.Equal(t, enums.CheckoutStatusPendingReview, events[0].Status)

	step, ok := svc.FlowStep(sub.ID)
	require.True(t, ok)
	require.Equal(t, flow.StepWaitingApproval, step)
}

func TestServiceCreateRejectsTamperedTotals(t *testing.T) {
	svc, hub, _ := newTestService()

	// Unit price matches the catalog, but the aggregates were doctored.
	input := validCreateInput()
	input.Items[0].LineTotal = decimal.NewFromInt(1)
	input.Subtotal = decimal.NewFromInt(1)
	input.Total = decimal.NewFromInt(1)

	_, err := svc.Create(context.Background(), input)
	fields := fieldErrors(t, err)
	require.Contains(t, fields, "items.0.lineTotal")
	require.Empty(t, hub.all())
}

func TestServiceCreateRejectsInvalid(t *testing.T) {
	svc, hub, _ := newTestService()

	input := validCreateInput()
	input.Payment.CardNumber = "1234"
	_, err := svc.Create(context.Background(), input)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	require.Empty(t, hub.all())
}

func TestServiceReviewThenSimulatedOTPFailure(t *testing.T) {
	svc, hub, sched := newTestService()

	sub, err := svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), sub.ID, StatusUpdateInput{Status: enums.CheckoutStatusApproved})
	require.NoError(t, err)

	step, _ := svc.FlowStep(sub.ID)
	require.Equal(t, flow.StepOTP, step)

	require.NoError(t, svc.VerifyOTP(context.Background(), sub.ID, "123456"))
	require.ErrorIs(t, svc.VerifyOTP(context.Background(), sub.ID, "123456"), flow.ErrAlreadyPending)

	sched.fire()

	got, err := svc.Get(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Equal(t, enums.CheckoutStatusOTPFailed, got.Payment.Status)
	require.NotNil(t, got.Payment.OTPCode)
	require.Equal(t, "123456", *got.Payment.OTPCode)
	require.NotNil(t, got.Payment.ErrorMessage)
	require.Equal(t, "OTP verification failed", *got.Payment.ErrorMessage)
	require.Len(t, got.PaymentUpdateHistory, 2)

	events := hub.all()
	require.Len(t, events, 3)
	require.Equal(t, enums.CheckoutStatusOTPFailed, events[2].Status)
}

func TestServiceAutoAdvanceForTimedWalk(t *testing.T) {
	svc, _, sched := newTestService()

	input := validCreateInput()
	input.Payment.Status = enums.CheckoutStatusOTPRequested
	sub, err := svc.Create(context.Background(), input)
	require.NoError(t, err)

	step, _ := svc.FlowStep(sub.ID)
	require.Equal(t, flow.StepWaitingApproval, step)

	sched.fire()
	step, _ = svc.FlowStep(sub.ID)
	require.Equal(t, flow.StepOTP, step)
}

func TestServiceRejectionDeliversMessage(t *testing.T) {
	svc, _, _ := newTestService()

	sub, err := svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	msg := "card declined by reviewer"
	_, err = svc.UpdateStatus(context.Background(), sub.ID, StatusUpdateInput{
		Status:       enums.CheckoutStatusRejected,
		ErrorMessage: &msg,
	})
	require.NoError(t, err)

	// Terminal decision releases the in-memory flow.
	_, ok := svc.FlowStep(sub.ID)
	require.False(t, ok)

	got, err := svc.Get(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Equal(t, enums.CheckoutStatusRejected, got.Payment.Status)
	require.Equal(t, &msg, got.Payment.ErrorMessage)
}

func TestServiceUpdateStatusValidation(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.UpdateStatus(context.Background(), "any", StatusUpdateInput{Status: "paid"})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	// Initial statuses cannot be applied as review decisions; a dashboard
	// must not push a submission back to otp_requested or pending_review.
	for _, status := range []enums.CheckoutStatus{enums.CheckoutStatusOTPRequested, enums.CheckoutStatusPendingReview} {
		_, err = svc.UpdateStatus(context.Background(), "any", StatusUpdateInput{Status: status})
		require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code(), status)
	}

	_, err = svc.UpdateStatus(context.Background(), "missing", StatusUpdateInput{Status: enums.CheckoutStatusApproved})
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestServiceListClampsLimit(t *testing.T) {
	svc, _, _ := newTestService()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), validCreateInput())
		require.NoError(t, err)
	}

	listed, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, listed, 3)

	listed, err = svc.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, listed, 2)
}

func TestServiceVerifyOTPUnknownSubmission(t *testing.T) {
	svc, _, _ := newTestService()
	err := svc.VerifyOTP(context.Background(), "missing", "123456")
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
