package debt

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// SortOrder selects the Debtor List comparator.
type SortOrder string

const (
	SortHighest SortOrder = "highest"
	SortNewest  SortOrder = "newest"
)

// ParseSortOrder accepts "highest" or "newest" (any case). Empty means
// highest.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortHighest:
		return SortHighest, nil
	case SortNewest:
		return SortNewest, nil
	default:
		return SortHighest, fmt.Errorf("unknown sort order %q", s)
	}
}

// Next cycles to the other order.
func (o SortOrder) Next() SortOrder {
	if o == SortNewest {
		return SortHighest
	}
	return SortNewest
}

// Label is the human name shown in the list header.
func (o SortOrder) Label() string {
	if o == SortNewest {
		return "Newest first"
	}
	return "Highest debt"
}

// IsDebtor reports whether c has a present, strictly positive debt.
func IsDebtor(c Customer) bool {
	return c.TotalDebt != nil && ParseAmount(*c.TotalDebt).IsPositive()
}

// Debtors projects customers onto the Debtor List: positive debts only,
// ordered by order. The input is not modified. Ties keep input order.
func Debtors(customers []Customer, order SortOrder) []Customer {
	out := make([]Customer, 0, len(customers))
	for _, c := range customers {
		if IsDebtor(c) {
			out = append(out, c)
		}
	}
	switch order {
	case SortNewest:
		slices.SortStableFunc(out, func(a, b Customer) int {
			return ParseTimestamp(b.CreatedAt).Compare(ParseTimestamp(a.CreatedAt))
		})
	default:
		slices.SortStableFunc(out, func(a, b Customer) int {
			return ParseOptional(b.TotalDebt).Cmp(ParseOptional(a.TotalDebt))
		})
	}
	return out
}

// Summary aggregates the Debtor List footer.
type Summary struct {
	Count int
	Total decimal.Decimal
}

// Summarize sums parsed debts. Malformed values count as zero.
func Summarize(debtors []Customer) Summary {
	s := Summary{Count: len(debtors), Total: decimal.Zero}
	for _, c := range debtors {
		s.Total = s.Total.Add(ParseOptional(c.TotalDebt))
	}
	return s
}
