package checkout

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mediayaseer-arch/questpark-backend/internal/tickets"
	"github.com/mediayaseer-arch/questpark-backend/pkg/enums"
	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
)

var testNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func validCreateInput() CreateInput {
	cart := tickets.EmptyCart()
	cart.Quantities[tickets.ProductAdult] = 2
	cart.Quantities[tickets.ProductJunior] = 1
	items := tickets.BuildOrderItems(cart)
	subtotal := tickets.Subtotal(items)
	return CreateInput{
		Billing: Billing{
			FirstName: "Amal",
			LastName:  "Haddad",
			Phone:     "+974 55501234",
			Email:     "amal@example.com",
		},
		Items:    items,
		Subtotal: subtotal,
		Total:    subtotal,
		Payment: PaymentInput{
			CardholderName: "Amal Haddad",
			CardNumber:     "4242 4242 4242 4242",
			Expiry:         "12/27",
			CVV:            "123",
			Status:         enums.CheckoutStatusPendingReview,
		},
	}
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	fields, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	return fields
}

func TestValidateAccepts(t *testing.T) {
	require.NoError(t, Validate(validCreateInput(), testNow))

	// Amex prefixes require a 4-digit cvv.
	amex := validCreateInput()
	amex.Payment.CardNumber = "378282246310005"
	amex.Payment.CVV = "1234"
	require.NoError(t, Validate(amex, testNow))
}

func TestValidateCardNumber(t *testing.T) {
	cases := map[string]string{
		"4242-4242":           "card number length is invalid",
		"4242424242424241":    "card number failed checksum",
		"1111111111111111":    "card number is invalid",
		"4242 4242 4242 424x": "card number must contain only digits",
	}
	for number, want := range cases {
		input := validCreateInput()
		input.Payment.CardNumber = number
		fields := fieldErrors(t, Validate(input, testNow))
		require.Equal(t, want, fields["payment.cardNumber"], number)
	}
}

func TestValidateExpiry(t *testing.T) {
	cases := map[string]string{
		"13/27":   "expiry must be in MM/YY format",
		"1/27":    "expiry must be in MM/YY format",
		"02/26":   "card has expired",
		"03/47":   "expiry is too far in the future",
		"12-2027": "expiry must be in MM/YY format",
	}
	for expiry, want := range cases {
		input := validCreateInput()
		input.Payment.Expiry = expiry
		fields := fieldErrors(t, Validate(input, testNow))
		require.Equal(t, want, fields["payment.expiry"], expiry)
	}

	// The expiry month itself is still valid.
	input := validCreateInput()
	input.Payment.Expiry = "03/26"
	require.NoError(t, Validate(input, testNow))
}

func TestValidateCVVLengthFollowsCardPrefix(t *testing.T) {
	input := validCreateInput()
	input.Payment.CVV = "1234"
	fields := fieldErrors(t, Validate(input, testNow))
	require.Equal(t, "cvv must have 3 digits", fields["payment.cvv"])

	input = validCreateInput()
	input.Payment.CardNumber = "371449635398431"
	input.Payment.CVV = "123"
	fields = fieldErrors(t, Validate(input, testNow))
	require.Equal(t, "cvv must have 4 digits", fields["payment.cvv"])
}

func TestValidatePhone(t *testing.T) {
	for phone, wantOK := range map[string]bool{
		"+974 55501234":  true,
		"+97455501234":   true,
		"+966-501234567": true,
		"+974 5550123":   false, // one digit short
		"+966 55501234":  false, // Saudi numbers need 9 digits
		"+1 5551234567":  false, // unsupported dial code
		"55501234":       false,
	} {
		input := validCreateInput()
		input.Billing.Phone = phone
		err := Validate(input, testNow)
		if wantOK {
			require.NoError(t, err, phone)
		} else {
			fields := fieldErrors(t, err)
			require.NotEmpty(t, fields["billing.phone"], phone)
		}
	}
}

func TestValidateBillingAndItems(t *testing.T) {
	input := validCreateInput()
	input.Billing.FirstName = "  "
	input.Billing.Email = "not-an-email"
	input.Items = nil
	input.Payment.Status = enums.CheckoutStatusApproved

	fields := fieldErrors(t, Validate(input, testNow))
	require.Equal(t, "first name is required", fields["billing.firstName"])
	require.Equal(t, "email address is invalid", fields["billing.email"])
	require.Equal(t, "at least one ticket is required", fields["items"])
	require.Equal(t, "status must be an initial review status", fields["payment.status"])

	input = validCreateInput()
	input.Items[0].UnitPrice = decimal.NewFromInt(1)
	fields = fieldErrors(t, Validate(input, testNow))
	require.Equal(t, "unit price does not match the catalog", fields["items.0.unitPrice"])
}

func TestValidateTotals(t *testing.T) {
	input := validCreateInput()
	input.Items[0].LineTotal = decimal.NewFromInt(999)
	fields := fieldErrors(t, Validate(input, testNow))
	require.Equal(t, "line total does not match unit price times quantity", fields["items.0.lineTotal"])

	input = validCreateInput()
	input.Subtotal = input.Subtotal.Add(decimal.NewFromInt(10))
	input.Total = input.Subtotal
	fields = fieldErrors(t, Validate(input, testNow))
	require.Equal(t, "subtotal does not match the sum of line totals", fields["subtotal"])

	input = validCreateInput()
	input.Total = input.Subtotal.Sub(decimal.NewFromInt(5))
	fields = fieldErrors(t, Validate(input, testNow))
	require.Equal(t, "total does not match the subtotal", fields["total"])
}

func TestMaskCardNumber(t *testing.T) {
	require.Equal(t, "************4242", MaskCardNumber("4242 4242 4242 4242"))
	require.Equal(t, "***********8431", MaskCardNumber("371449635398431"))
	require.Equal(t, "4242", MaskCardNumber("4242"))
}
