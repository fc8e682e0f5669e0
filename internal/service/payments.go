package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/jask/debtboard/internal/api"
	"github.com/jask/debtboard/internal/database/repository"
	"github.com/jask/debtboard/internal/debt"
)

// Validation failures. No request is issued when one is returned.
var (
	ErrNoCustomer        = errors.New("select a customer first")
	ErrAmountRequired    = errors.New("enter a payment amount")
	ErrAmountInvalid     = errors.New("amount is not a number")
	ErrAmountNotPositive = errors.New("amount must be greater than zero")
	ErrAmountExceedsDebt = errors.New("amount exceeds the current debt")
)

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNoCustomer) ||
		errors.Is(err, ErrAmountRequired) ||
		errors.Is(err, ErrAmountInvalid) ||
		errors.Is(err, ErrAmountNotPositive) ||
		errors.Is(err, ErrAmountExceedsDebt)
}

// Payer submits payments to the backend.
type Payer interface {
	SubmitPayment(ctx context.Context, customerID string, req api.PaymentRequest, idempotencyKey string) (api.PaymentResponse, error)
}

// Journal records payment attempts locally.
type Journal interface {
	ByKey(ctx context.Context, key string) (*repository.PaymentAttempt, error)
	Begin(ctx context.Context, a repository.PaymentAttempt) error
	MarkSucceeded(ctx context.Context, key string, newDebt string) error
	MarkFailed(ctx context.Context, key string, reason string) error
}

// Draft is an unsubmitted payment for one customer.
type Draft struct {
	Customer       *debt.Customer
	AmountText     string
	Currency       string
	IdempotencyKey string
}

// PaymentResult is what the backend reported for an accepted payment.
type PaymentResult struct {
	CustomerID string
	Amount     decimal.Decimal
	NewDebt    decimal.Decimal
	Currency   string
}

// PaymentService validates drafts and submits them.
type PaymentService struct {
	Client  Payer
	Journal Journal
	// AllowOverpay lets amounts exceed the customer's current debt.
	AllowOverpay bool
	Log          logrus.FieldLogger
}

// NewIdempotencyKey mints a key for a new draft.
func NewIdempotencyKey() string { return uuid.NewString() }

// Validate checks d and returns the parsed amount.
func (s *PaymentService) Validate(d Draft) (decimal.Decimal, error) {
	if d.Customer == nil {
		return decimal.Zero, ErrNoCustomer
	}
	text := strings.TrimSpace(d.AmountText)
	if text == "" {
		return decimal.Zero, ErrAmountRequired
	}
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, ErrAmountInvalid
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrAmountNotPositive
	}
	if !s.AllowOverpay && amount.GreaterThan(debt.ParseOptional(d.Customer.TotalDebt)) {
		return decimal.Zero, fmt.Errorf("%w (%s)", ErrAmountExceedsDebt, debt.Money(debt.ParseOptional(d.Customer.TotalDebt), d.Currency))
	}
	return amount, nil
}

// Submit validates d, journals the attempt and sends it. A missing newDebt in
// the response is reported as zero. A key the journal already marks as
// succeeded returns the recorded result without a request.
func (s *PaymentService) Submit(ctx context.Context, d Draft) (PaymentResult, error) {
	amount, err := s.Validate(d)
	if err != nil {
		return PaymentResult{}, err
	}
	if s.Client == nil {
		return PaymentResult{}, errors.New("payments: client not configured")
	}
	key := d.IdempotencyKey
	if key == "" {
		key = NewIdempotencyKey()
	}
	log := s.logger().WithFields(logrus.Fields{
		"customer_id": d.Customer.ID,
		"amount":      amount.String(),
		"currency":    d.Currency,
		"key":         key,
	})

	if prev, ok := s.recorded(ctx, log, key); ok {
		log.Info("payment already recorded for key")
		return prev, nil
	}

	s.journal(log, func(j Journal) error {
		return j.Begin(ctx, repository.PaymentAttempt{
			ID:             uuid.NewString(),
			IdempotencyKey: key,
			CustomerID:     d.Customer.ID,
			CustomerName:   d.Customer.Name,
			Amount:         amount.String(),
			Currency:       d.Currency,
		})
	})

	resp, err := s.Client.SubmitPayment(ctx, d.Customer.ID, api.PaymentRequest{
		Amount:   json.Number(amount.String()),
		Currency: d.Currency,
	}, key)
	if err != nil {
		log.WithError(err).Warn("payment failed")
		s.journal(log, func(j Journal) error { return j.MarkFailed(ctx, key, err.Error()) })
		return PaymentResult{}, fmt.Errorf("submit payment: %w", err)
	}

	newDebt := decimal.Zero
	if resp.NewDebt != nil {
		newDebt = *resp.NewDebt
	}
	log.WithField("new_debt", newDebt.StringFixed(2)).Info("payment accepted")
	s.journal(log, func(j Journal) error { return j.MarkSucceeded(ctx, key, newDebt.StringFixed(2)) })

	return PaymentResult{
		CustomerID: d.Customer.ID,
		Amount:     amount,
		NewDebt:    newDebt,
		Currency:   d.Currency,
	}, nil
}

// recorded returns the journaled outcome of a draft that already succeeded,
// so a replayed key is not sent again.
func (s *PaymentService) recorded(ctx context.Context, log logrus.FieldLogger, key string) (PaymentResult, bool) {
	if s.Journal == nil {
		return PaymentResult{}, false
	}
	prev, err := s.Journal.ByKey(ctx, key)
	if err != nil {
		log.WithError(err).Error("journal read failed")
		return PaymentResult{}, false
	}
	if prev == nil || prev.Status != repository.AttemptSucceeded {
		return PaymentResult{}, false
	}
	return PaymentResult{
		CustomerID: prev.CustomerID,
		Amount:     debt.ParseAmount(prev.Amount),
		NewDebt:    debt.ParseOptional(prev.NewDebt),
		Currency:   prev.Currency,
	}, true
}

// journal runs fn against the journal. Journal errors never block a payment.
func (s *PaymentService) journal(log logrus.FieldLogger, fn func(Journal) error) {
	if s.Journal == nil {
		return
	}
	if err := fn(s.Journal); err != nil {
		log.WithError(err).Error("journal write failed")
	}
}

func (s *PaymentService) logger() logrus.FieldLogger {
	if s.Log != nil {
		return s.Log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
