package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/mediayaseer-arch/questpark-backend/internal/tickets"
	"github.com/mediayaseer-arch/questpark-backend/pkg/enums"
)

// Billing carries the buyer contact details captured at checkout.
type Billing struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

// Payment is the persisted payment block of a submission. Only a masked card
// number is ever stored; the full PAN and CVV are validated in memory and
// discarded.
type Payment struct {
	CardholderName   string               `json:"cardholderName"`
	CardNumberMasked string               `json:"cardNumberMasked"`
	Expiry           string               `json:"expiry"`
	Status           enums.CheckoutStatus `json:"status"`
	OTPCode          *string              `json:"otpCode"`
	ErrorMessage     *string              `json:"errorMessage"`
}

// HistoryEntry records one payment status transition. Each entry pairs the
// full previous payment review fields with the next ones so the dashboard can
// replay the chain.
type HistoryEntry struct {
	UpdatedAt            string               `json:"updatedAt"`
	PreviousStatus       enums.CheckoutStatus `json:"previousStatus"`
	PreviousOTPCode      *string              `json:"previousOtpCode"`
	PreviousErrorMessage *string              `json:"previousErrorMessage"`
	NextStatus           enums.CheckoutStatus `json:"nextStatus"`
	NextOTPCode          *string              `json:"nextOtpCode"`
	NextErrorMessage     *string              `json:"nextErrorMessage"`
}

// Submission is a stored checkout submission.
type Submission struct {
	ID                   string              `json:"id"`
	Billing              Billing             `json:"billing"`
	VisitDateISO         *string             `json:"visitDate"`
	VisitTime            *string             `json:"visitTime"`
	Items                []tickets.OrderItem `json:"items"`
	Subtotal             decimal.Decimal     `json:"subtotal"`
	Total                decimal.Decimal     `json:"total"`
	Payment              Payment             `json:"payment"`
	PaymentUpdateHistory []HistoryEntry      `json:"paymentUpdateHistory"`
	CreatedAt            string              `json:"createdAt"`
	UpdatedAt            string              `json:"updatedAt"`
}

// PaymentInput is the raw payment block received from the storefront. It is
// never persisted as-is.
type PaymentInput struct {
	CardholderName string               `json:"cardholderName" validate:"required"`
	CardNumber     string               `json:"cardNumber" validate:"required"`
	Expiry         string               `json:"expiry" validate:"required"`
	CVV            string               `json:"cvv" validate:"required"`
	Status         enums.CheckoutStatus `json:"status" validate:"required"`
}

// CreateInput is the storefront checkout request body.
type CreateInput struct {
	Billing      Billing             `json:"billing" validate:"required"`
	VisitDateISO *string             `json:"visitDate"`
	VisitTime    *string             `json:"visitTime"`
	Items        []tickets.OrderItem `json:"items" validate:"required,min=1,dive"`
	Subtotal     decimal.Decimal     `json:"subtotal"`
	Total        decimal.Decimal     `json:"total"`
	Payment      PaymentInput        `json:"payment" validate:"required"`
}

// StatusUpdateInput is the dashboard review decision. OTPCode and
// ErrorMessage replace the stored values outright, including clearing them
// when omitted.
type StatusUpdateInput struct {
	Status       enums.CheckoutStatus `json:"status" validate:"required"`
	OTPCode      *string              `json:"otpCode"`
	ErrorMessage *string              `json:"errorMessage"`
}
