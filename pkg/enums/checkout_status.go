package enums

import "fmt"

// CheckoutStatus tracks the payment-review lifecycle of a submission.
type CheckoutStatus string

const (
	CheckoutStatusPendingReview CheckoutStatus = "pending_review"
	CheckoutStatusApproved      CheckoutStatus = "approved"
	CheckoutStatusRejected      CheckoutStatus = "rejected"
	CheckoutStatusOTPRequested  CheckoutStatus = "otp_requested"
	CheckoutStatusOTPFailed     CheckoutStatus = "otp_failed"
	CheckoutStatusOTPVerified   CheckoutStatus = "otp_verified"
)

var validCheckoutStatuses = []CheckoutStatus{
	CheckoutStatusPendingReview,
	CheckoutStatusApproved,
	CheckoutStatusRejected,
	CheckoutStatusOTPRequested,
	CheckoutStatusOTPFailed,
	CheckoutStatusOTPVerified,
}

// Statuses accepted on create. The remaining values only ever come from
// operator decisions or OTP verification outcomes.
var initialCheckoutStatuses = []CheckoutStatus{
	CheckoutStatusPendingReview,
	CheckoutStatusOTPRequested,
}

// Statuses accepted by the status-update operation.
var updateCheckoutStatuses = []CheckoutStatus{
	CheckoutStatusApproved,
	CheckoutStatusRejected,
	CheckoutStatusOTPFailed,
	CheckoutStatusOTPVerified,
}

// String implements fmt.Stringer.
func (s CheckoutStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CheckoutStatus.
func (s CheckoutStatus) IsValid() bool {
	for _, candidate := range validCheckoutStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsInitial reports whether the status may appear on a freshly created submission.
func (s CheckoutStatus) IsInitial() bool {
	for _, candidate := range initialCheckoutStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsUpdate reports whether the status may be applied via updateStatus.
func (s CheckoutStatus) IsUpdate() bool {
	for _, candidate := range updateCheckoutStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCheckoutStatus converts raw input into a CheckoutStatus.
func ParseCheckoutStatus(value string) (CheckoutStatus, error) {
	for _, candidate := range validCheckoutStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout status %q", value)
}
