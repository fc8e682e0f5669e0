package debt

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Severity tiers a debt amount for display.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityElevated
	SeverityHigh
)

var (
	elevatedThreshold = decimal.NewFromInt(1000)
	highThreshold     = decimal.NewFromInt(5000)
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityElevated:
		return "elevated"
	case SeverityHigh:
		return "high"
	default:
		return "none"
	}
}

// ParseAmount returns the decimal value of s, or zero when s is blank or
// malformed. Malformed debts never fail rendering.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseOptional is ParseAmount for optional backend fields.
func ParseOptional(s *string) decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	return ParseAmount(*s)
}

// FormatAmount renders an optional amount with two decimals, "0.00" when
// absent or malformed.
func FormatAmount(s *string) string {
	return ParseOptional(s).StringFixed(2)
}

// Money joins a two-decimal amount and the currency label.
func Money(d decimal.Decimal, currency string) string {
	if currency == "" {
		return d.StringFixed(2)
	}
	return d.StringFixed(2) + " " + currency
}

// SeverityOf tiers a debt: >=5000 high, >=1000 elevated, >0 low.
func SeverityOf(s *string) Severity {
	d := ParseOptional(s)
	switch {
	case d.GreaterThanOrEqual(highThreshold):
		return SeverityHigh
	case d.GreaterThanOrEqual(elevatedThreshold):
		return SeverityElevated
	case d.IsPositive():
		return SeverityLow
	default:
		return SeverityNone
	}
}

// Remaining previews the balance left after paying amountText against
// totalDebt. The result is not clamped at zero. ok is false while no amount
// has been entered.
func Remaining(totalDebt *string, amountText string) (rest decimal.Decimal, ok bool) {
	if strings.TrimSpace(amountText) == "" {
		return decimal.Zero, false
	}
	return ParseOptional(totalDebt).Sub(ParseAmount(amountText)), true
}

// ShortID previews an id as its first 8 characters and an ellipsis.
func ShortID(id string) string {
	r := []rune(id)
	if len(r) > 8 {
		r = r[:8]
	}
	return string(r) + "…"
}
