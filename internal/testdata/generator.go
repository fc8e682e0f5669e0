// Package testdata generates customer collections for tests and demos.
package testdata

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/jask/debtboard/internal/debt"
)

var names = []string{"Ali Veli", "Ayşe Demir", "Bob Stone", "Chen Wei", "Dana Cruz", "Emre Kaya", "Fatma Şahin", "Greta Lind"}

// Customers returns n customers with a mix of debts: positive, zero,
// negative, absent and malformed, and timestamps in several layouts.
func Customers(r *rand.Rand, n int) []debt.Customer {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]debt.Customer, 0, n)
	for i := 0; i < n; i++ {
		c := debt.Customer{
			ID:   uuid.Must(uuid.NewRandomFromReader(r)).String(),
			Name: names[r.Intn(len(names))],
		}
		switch r.Intn(10) {
		case 0:
			c.TotalDebt = nil
		case 1:
			c.TotalDebt = strp("0")
		case 2:
			c.TotalDebt = strp("-" + cents(r))
		case 3:
			c.TotalDebt = strp("n/a")
		default:
			c.TotalDebt = strp(cents(r))
		}
		created := base.Add(-time.Duration(r.Intn(400*24)) * time.Hour)
		switch r.Intn(5) {
		case 0:
			c.CreatedAt = nil
		case 1:
			c.CreatedAt = strp("yesterday")
		case 2:
			c.CreatedAt = strp(created.Format("2006-01-02 15:04:05"))
		default:
			c.CreatedAt = strp(created.Format(time.RFC3339))
		}
		out = append(out, c)
	}
	return out
}

func cents(r *rand.Rand) string {
	return fmt.Sprintf("%d.%02d", r.Intn(12000), r.Intn(100))
}

func strp(s string) *string { return &s }
