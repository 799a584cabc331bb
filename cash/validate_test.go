/*
validate_test.go - Tests for input validation

Tests for:
- Amount bounds and fractional-digit limit
- Receipt URL shape
- Order-reference detection (duplicate-guard trigger)
*/
package cash_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cashdesk/cash"
)

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// =============================================================================
// AMOUNT
// =============================================================================

func TestValidateAmount_Bounds(t *testing.T) {
	// Both bounds are inclusive.
	assert.NoError(t, cash.ValidateAmount(amt("0.01")))
	assert.NoError(t, cash.ValidateAmount(amt("9999999.99")))
	assert.NoError(t, cash.ValidateAmount(amt("1500")))

	assert.Error(t, cash.ValidateAmount(amt("0")))
	assert.Error(t, cash.ValidateAmount(amt("0.009")))
	assert.Error(t, cash.ValidateAmount(amt("-5")))
	assert.Error(t, cash.ValidateAmount(amt("10000000")))
}

func TestValidateAmount_AtMostTwoDecimalPlaces(t *testing.T) {
	assert.NoError(t, cash.ValidateAmount(amt("10.50")))

	err := cash.ValidateAmount(amt("10.505"))
	require.Error(t, err)
	assert.True(t, cash.IsValidation(err))
}

// =============================================================================
// RECEIPT URL
// =============================================================================

func TestValidateReceiptURL(t *testing.T) {
	// Empty is fine: the field is optional.
	assert.NoError(t, cash.ValidateReceiptURL(""))
	assert.NoError(t, cash.ValidateReceiptURL("https://docs.example.com/r/scan.pdf"))
	assert.NoError(t, cash.ValidateReceiptURL("https://docs.example.com/r/photo.JPG"))

	// Wrong scheme, missing host, wrong extension
	assert.Error(t, cash.ValidateReceiptURL("http://docs.example.com/r/scan.pdf"))
	assert.Error(t, cash.ValidateReceiptURL("https:///scan.pdf"))
	assert.Error(t, cash.ValidateReceiptURL("https://docs.example.com/r/scan.exe"))

	long := "https://docs.example.com/" + strings.Repeat("a", 500) + ".pdf"
	assert.Error(t, cash.ValidateReceiptURL(long))
}

func TestValidatePaymentPurpose_LengthLimit(t *testing.T) {
	assert.NoError(t, cash.ValidatePaymentPurpose(""))
	assert.NoError(t, cash.ValidatePaymentPurpose(strings.Repeat("x", 200)))
	assert.Error(t, cash.ValidatePaymentPurpose(strings.Repeat("x", 201)))
}

// =============================================================================
// ORDER REFERENCES
// =============================================================================

func TestIsOrderReference(t *testing.T) {
	// Only the exact shape "Order #<digits>" triggers the duplicate guard.
	assert.True(t, cash.IsOrderReference("Order #123"))
	assert.True(t, cash.IsOrderReference("Order #1"))

	assert.False(t, cash.IsOrderReference("order #123"))
	assert.False(t, cash.IsOrderReference("Order #123 refund"))
	assert.False(t, cash.IsOrderReference("Order #"))
	assert.False(t, cash.IsOrderReference("Office supplies"))
	assert.False(t, cash.IsOrderReference(""))
}
