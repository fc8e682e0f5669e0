package repository

import "time"

// AttemptStatus is the outcome of a payment attempt.
type AttemptStatus string

const (
	AttemptPending   AttemptStatus = "pending"
	AttemptSucceeded AttemptStatus = "succeeded"
	AttemptFailed    AttemptStatus = "failed"
)

// PaymentAttempt represents a payment_attempts row. Amounts are kept as
// decimal text.
type PaymentAttempt struct {
	ID             string
	IdempotencyKey string
	CustomerID     string
	CustomerName   string
	Amount         string
	Currency       string
	Status         AttemptStatus
	Tries          int
	NewDebt        *string
	Error          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
