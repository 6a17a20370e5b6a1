package flow

import (
	"fmt"
	"regexp"

	"github.com/mediayaseer-arch/questpark-backend/pkg/enums"
	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
)

// Step is a position in the checkout payment-review walk. A submission moves
// submitting -> waitingApproval -> otp -> verifyingOtp and settles in one of
// the terminal steps; rejected is reachable while waiting for approval.
type Step string

const (
	StepIdle            Step = "idle"
	StepSubmitting      Step = "submitting"
	StepWaitingApproval Step = "waitingApproval"
	StepOTP             Step = "otp"
	StepVerifyingOTP    Step = "verifyingOtp"
	StepOTPVerified     Step = "otpVerified"
	StepOTPFailed       Step = "otpFailed"
	StepRejected        Step = "rejected"
)

// Terminal reports whether no further transition can occur.
func (s Step) Terminal() bool {
	switch s {
	case StepOTPVerified, StepOTPFailed, StepRejected:
		return true
	}
	return false
}

var otpCodePattern = regexp.MustCompile(`^\d{6}$`)

// ErrAlreadyPending signals that the requested transition is already in
// flight; callers treat it as a no-op so repeated "proceed" actions cannot
// duplicate work.
var ErrAlreadyPending = pkgerrors.New(pkgerrors.CodeConflict, "operation already in progress")

// Machine is the per-submission state machine. It is not safe for concurrent
// use; the Coordinator serializes access.
type Machine struct {
	step         Step
	errorMessage string
}

// NewMachine returns a machine positioned after a successful submission.
func NewMachine() *Machine {
	return &Machine{step: StepWaitingApproval}
}

// Step returns the current position.
func (m *Machine) Step() Step {
	return m.step
}

// ErrorMessage returns the message recorded on rejection or failure.
func (m *Machine) ErrorMessage() string {
	return m.errorMessage
}

// ObserveStatus feeds an externally observed store status into the machine.
// Only the approval decision moves it: approved reveals the OTP step,
// rejected terminates with the stored message. Anything else is ignored so a
// stale or repeated event cannot corrupt a newer step.
func (m *Machine) ObserveStatus(status enums.CheckoutStatus, errorMessage string) {
	if m.step != StepWaitingApproval {
		return
	}
	switch status {
	case enums.CheckoutStatusApproved:
		m.step = StepOTP
	case enums.CheckoutStatusRejected:
		m.step = StepRejected
		m.errorMessage = errorMessage
	}
}

// StartVerify validates the code and moves otp -> verifyingOtp. A repeat call
// while verification is pending returns ErrAlreadyPending.
func (m *Machine) StartVerify(code string) error {
	if m.step == StepVerifyingOTP {
		return ErrAlreadyPending
	}
	if m.step != StepOTP {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cannot verify otp from step %q", m.step))
	}
	if !otpCodePattern.MatchString(code) {
		return pkgerrors.New(pkgerrors.CodeValidation, "otp code must be 6 digits")
	}
	m.step = StepVerifyingOTP
	return nil
}

// Resolve settles a pending verification.
func (m *Machine) Resolve(verified bool, errorMessage string) {
	if m.step != StepVerifyingOTP {
		return
	}
	if verified {
		m.step = StepOTPVerified
		return
	}
	m.step = StepOTPFailed
	m.errorMessage = errorMessage
}
