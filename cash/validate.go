/*
validate.go - Input validation for cash transactions

PURPOSE:
  Cheap, synchronous checks that run before any store interaction. A request
  that fails here never consumes a database transaction slot.

RULES:
  amount          0.01 <= amount <= 9,999,999.99, at most 2 fractional digits
  receiptDocURL   optional; HTTPS, ends in .pdf/.jpg/.jpeg/.png, <= 500 chars
  paymentPurpose  optional; <= 200 chars
  kind            income or expense

ORDER REFERENCES:
  A payment purpose of the exact shape "Order #<digits>" links the posting to
  an order and is subject to the duplicate guard in service.Create. Any other
  purpose is a free-form category and skips the guard.

SEE ALSO:
  - service.go: Calls these before opening the transaction
*/
package cash

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount bounds. Inclusive on both ends, two fractional digits max.
var (
	minAmount = decimal.RequireFromString("0.01")
	maxAmount = decimal.RequireFromString("9999999.99")
)

const (
	maxReceiptURLLen     = 500
	maxPaymentPurposeLen = 200
)

var orderReferenceRe = regexp.MustCompile(`^Order #\d+$`)

// IsOrderReference reports whether purpose has the strict order-reference
// shape that the create-path duplicate guard applies to.
func IsOrderReference(purpose string) bool {
	return orderReferenceRe.MatchString(purpose)
}

// ValidateAmount enforces the amount bounds.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Exponent() < -2 {
		return &ValidationError{Field: "amount", Message: "at most 2 decimal places"}
	}
	if amount.LessThan(minAmount) || amount.GreaterThan(maxAmount) {
		return &ValidationError{Field: "amount", Message: "must be between 0.01 and 9999999.99"}
	}
	return nil
}

// ValidateReceiptURL enforces the receipt document URL shape.
func ValidateReceiptURL(raw string) error {
	if raw == "" {
		return nil
	}
	if len(raw) > maxReceiptURLLen {
		return &ValidationError{Field: "receiptDocUrl", Message: "must be at most 500 characters"}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return &ValidationError{Field: "receiptDocUrl", Message: "must be an https URL"}
	}
	lower := strings.ToLower(u.Path)
	for _, ext := range []string{".pdf", ".jpg", ".jpeg", ".png"} {
		if strings.HasSuffix(lower, ext) {
			return nil
		}
	}
	return &ValidationError{Field: "receiptDocUrl", Message: "must end in .pdf, .jpg, .jpeg or .png"}
}

// ValidatePaymentPurpose enforces the purpose length limit.
func ValidatePaymentPurpose(purpose string) error {
	if len(purpose) > maxPaymentPurposeLen {
		return &ValidationError{Field: "paymentPurpose", Message: "must be at most 200 characters"}
	}
	return nil
}

func validateCreate(in CreateInput) error {
	if _, ok := ParseKind(string(in.Kind)); !ok {
		return &ValidationError{Field: "kind", Message: "must be income or expense"}
	}
	if in.City == "" {
		return &ValidationError{Field: "city", Message: "is required"}
	}
	if err := ValidateAmount(in.Amount); err != nil {
		return err
	}
	if err := ValidateReceiptURL(in.ReceiptDocURL); err != nil {
		return err
	}
	return ValidatePaymentPurpose(in.PaymentPurpose)
}

func validateUpdate(in UpdateInput) error {
	if in.Kind != nil {
		if _, ok := ParseKind(string(*in.Kind)); !ok {
			return &ValidationError{Field: "kind", Message: "must be income or expense"}
		}
	}
	if in.City != nil && *in.City == "" {
		return &ValidationError{Field: "city", Message: "cannot be empty"}
	}
	if in.Amount != nil {
		if err := ValidateAmount(*in.Amount); err != nil {
			return err
		}
	}
	if in.ReceiptDocURL != nil {
		if err := ValidateReceiptURL(*in.ReceiptDocURL); err != nil {
			return err
		}
	}
	if in.PaymentPurpose != nil {
		return ValidatePaymentPurpose(*in.PaymentPurpose)
	}
	return nil
}
