package flow

import (
	"context"
	"sync"
	"time"

	"github.com/mediayaseer-arch/questpark-backend/pkg/enums"
	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
)

// VerifyOutcome is invoked when a pending OTP verification settles. The
// coordinator runs it outside its lock; implementations persist the result
// and broadcast the change.
type VerifyOutcome func(ctx context.Context, submissionID, code string, verified bool, errorMessage string)

// Options configure a Coordinator.
type Options struct {
	Scheduler     Scheduler
	ApprovalDelay time.Duration
	VerifyDelay   time.Duration
	Outcome       VerifyOutcome
}

type entry struct {
	machine *Machine
	cancel  CancelFunc
}

// Coordinator owns the in-memory machines for live submissions. It schedules
// the auto-approval advance for the simple walk and the simulated OTP
// verification, and guarantees at most one pending timer per submission.
type Coordinator struct {
	mu      sync.Mutex
	entries map[string]*entry
	opts    Options
	closed  bool
}

// NewCoordinator builds a Coordinator. A nil Scheduler falls back to the
// timer-wheel implementation.
func NewCoordinator(opts Options) *Coordinator {
	if opts.Scheduler == nil {
		opts.Scheduler = NewScheduler()
	}
	return &Coordinator{
		entries: make(map[string]*entry),
		opts:    opts,
	}
}

// Begin registers a machine for a freshly created submission. When
// autoAdvance is set the approval step resolves itself after ApprovalDelay,
// mirroring the walk that needs no human reviewer.
func (c *Coordinator) Begin(submissionID string, autoAdvance bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if prev, ok := c.entries[submissionID]; ok && prev.cancel != nil {
		prev.cancel()
	}
	e := &entry{machine: NewMachine()}
	c.entries[submissionID] = e
	if autoAdvance {
		id := submissionID
		e.cancel = c.opts.Scheduler.AfterFunc(c.opts.ApprovalDelay, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if cur, ok := c.entries[id]; ok {
				cur.machine.ObserveStatus(enums.CheckoutStatusApproved, "")
				cur.cancel = nil
			}
		})
	}
}

// Observe feeds a persisted status change into the submission's machine. An
// unknown submission is ignored; its machine lived in another process or was
// already settled.
func (c *Coordinator) Observe(submissionID string, status enums.CheckoutStatus, errorMessage string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[submissionID]
	if !ok {
		return
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.machine.ObserveStatus(status, errorMessage)
	if e.machine.Step().Terminal() {
		delete(c.entries, submissionID)
	}
}

// Step reports the current step for a submission, or false when no machine
// is live in this process.
func (c *Coordinator) Step(submissionID string) (Step, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[submissionID]
	if !ok {
		return StepIdle, false
	}
	return e.machine.Step(), true
}

// StartVerify begins the simulated OTP verification for a submission. The
// outcome always resolves as a failure after VerifyDelay; there is no issuer
// to check the code against. Repeated calls while a verification is pending
// return ErrAlreadyPending.
func (c *Coordinator) StartVerify(ctx context.Context, submissionID, code string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeInternal, "flow coordinator is shut down")
	}
	e, ok := c.entries[submissionID]
	if !ok {
		c.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNotFound, "no active checkout flow for submission")
	}
	if err := e.machine.StartVerify(code); err != nil {
		c.mu.Unlock()
		return err
	}
	id := submissionID
	e.cancel = c.opts.Scheduler.AfterFunc(c.opts.VerifyDelay, func() {
		const message = "OTP verification failed"
		c.mu.Lock()
		cur, ok := c.entries[id]
		if ok {
			cur.machine.Resolve(false, message)
			cur.cancel = nil
			delete(c.entries, id)
		}
		c.mu.Unlock()
		if ok && c.opts.Outcome != nil {
			c.opts.Outcome(context.WithoutCancel(ctx), id, code, false, message)
		}
	})
	c.mu.Unlock()
	return nil
}

// Shutdown cancels every pending timer and rejects further work.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, e := range c.entries {
		if e.cancel != nil {
			e.cancel()
		}
		delete(c.entries, id)
	}
}
