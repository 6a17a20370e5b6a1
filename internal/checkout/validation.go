package checkout

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mediayaseer-arch/questpark-backend/internal/tickets"
	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsPattern = regexp.MustCompile(`^\d+$`)
	expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2})$`)
)

// phoneDigitsByDialCode maps an accepted dial code to the exact number of
// national digits that must follow it.
var phoneDigitsByDialCode = map[string]int{
	"+974": 8,
	"+966": 9,
	"+973": 8,
	"+968": 8,
	"+971": 9,
	"+965": 8,
}

const (
	cardNumberMinDigits = 13
	cardNumberMaxDigits = 19
	expiryMaxYearsAhead = 20
)

// Validate checks a checkout submission request and returns a validation
// error carrying a field -> message map when anything is off. The clock is
// injected so expiry checks are deterministic under test.
func Validate(input CreateInput, now time.Time) error {
	fields := map[string]string{}

	validateBilling(input.Billing, fields)
	validateItems(input, fields)
	validatePayment(input.Payment, now, fields)

	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout submission is invalid").WithDetails(fields)
	}
	return nil
}

func validateBilling(billing Billing, fields map[string]string) {
	if strings.TrimSpace(billing.FirstName) == "" {
		fields["billing.firstName"] = "first name is required"
	}
	if strings.TrimSpace(billing.LastName) == "" {
		fields["billing.lastName"] = "last name is required"
	}
	if !emailPattern.MatchString(strings.TrimSpace(billing.Email)) {
		fields["billing.email"] = "email address is invalid"
	}
	if msg := phoneError(billing.Phone); msg != "" {
		fields["billing.phone"] = msg
	}
}

func phoneError(phone string) string {
	compact := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	for dialCode, digits := range phoneDigitsByDialCode {
		if !strings.HasPrefix(compact, dialCode) {
			continue
		}
		national := compact[len(dialCode):]
		if len(national) != digits || !digitsPattern.MatchString(national) {
			return fmt.Sprintf("phone number for %s must have %d digits", dialCode, digits)
		}
		return ""
	}
	return "phone number must start with a supported dial code"
}

func validateItems(input CreateInput, fields map[string]string) {
	if len(input.Items) == 0 {
		fields["items"] = "at least one ticket is required"
		return
	}
	subtotal := decimal.Zero
	itemsOK := true
	for i, item := range input.Items {
		product, ok := tickets.ProductByID(item.ID)
		if !ok {
			fields[fmt.Sprintf("items.%d.id", i)] = "unknown ticket type"
			itemsOK = false
			continue
		}
		if item.Quantity <= 0 {
			fields[fmt.Sprintf("items.%d.quantity", i)] = "quantity must be positive"
			itemsOK = false
			continue
		}
		if !item.UnitPrice.Equal(product.UnitPrice) {
			fields[fmt.Sprintf("items.%d.unitPrice", i)] = "unit price does not match the catalog"
			itemsOK = false
			continue
		}
		line := product.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if !item.LineTotal.Equal(line) {
			fields[fmt.Sprintf("items.%d.lineTotal", i)] = "line total does not match unit price times quantity"
			itemsOK = false
		}
		subtotal = subtotal.Add(line)
	}
	// Aggregate figures are only meaningful once every line checks out.
	if !itemsOK {
		return
	}
	if !input.Subtotal.Equal(subtotal) {
		fields["subtotal"] = "subtotal does not match the sum of line totals"
	}
	if !input.Total.Equal(input.Subtotal) {
		fields["total"] = "total does not match the subtotal"
	}
}

func validatePayment(payment PaymentInput, now time.Time, fields map[string]string) {
	if strings.TrimSpace(payment.CardholderName) == "" {
		fields["payment.cardholderName"] = "cardholder name is required"
	}
	if !payment.Status.IsInitial() {
		fields["payment.status"] = "status must be an initial review status"
	}

	cardDigits := CardDigits(payment.CardNumber)
	switch {
	case !digitsPattern.MatchString(cardDigits):
		fields["payment.cardNumber"] = "card number must contain only digits"
	case len(cardDigits) < cardNumberMinDigits || len(cardDigits) > cardNumberMaxDigits:
		fields["payment.cardNumber"] = "card number length is invalid"
	case allSameDigit(cardDigits):
		fields["payment.cardNumber"] = "card number is invalid"
	case !luhnValid(cardDigits):
		fields["payment.cardNumber"] = "card number failed checksum"
	}

	if msg := expiryError(payment.Expiry, now); msg != "" {
		fields["payment.expiry"] = msg
	}
	if msg := cvvError(payment.CVV, cardDigits); msg != "" {
		fields["payment.cvv"] = msg
	}
}

func expiryError(expiry string, now time.Time) string {
	match := expiryPattern.FindStringSubmatch(strings.TrimSpace(expiry))
	if match == nil {
		return "expiry must be in MM/YY format"
	}
	var month, year int
	fmt.Sscanf(match[1], "%d", &month)
	fmt.Sscanf(match[2], "%d", &year)
	year += 2000

	// A card is valid through the last instant of its expiry month.
	endOfMonth := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if !now.Before(endOfMonth) {
		return "card has expired"
	}
	if year > now.Year()+expiryMaxYearsAhead {
		return "expiry is too far in the future"
	}
	return ""
}

func cvvError(cvv, cardDigits string) string {
	want := 3
	if strings.HasPrefix(cardDigits, "34") || strings.HasPrefix(cardDigits, "37") {
		want = 4
	}
	if len(cvv) != want || !digitsPattern.MatchString(cvv) {
		return fmt.Sprintf("cvv must have %d digits", want)
	}
	return ""
}

// CardDigits strips spaces and dashes from a card number.
func CardDigits(cardNumber string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(cardNumber))
}

// MaskCardNumber keeps the last four digits and blanks the rest. The masked
// form is the only card representation that is ever persisted.
func MaskCardNumber(cardNumber string) string {
	digits := CardDigits(cardNumber)
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}

func allSameDigit(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return len(digits) > 0
}

func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
