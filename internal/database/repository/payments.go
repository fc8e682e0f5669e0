package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jask/debtboard/internal/database"
)

// PaymentAttemptRepo journals payment submissions made from this terminal.
type PaymentAttemptRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewPaymentAttemptRepo(db *sql.DB) *PaymentAttemptRepo {
	return &PaymentAttemptRepo{db: db, now: database.Now}
}

// Begin records a pending attempt. Reusing an idempotency key (a retry of the
// same draft) resets the row to pending and bumps its try count.
func (r *PaymentAttemptRepo) Begin(ctx context.Context, a PaymentAttempt) error {
	now := r.now()
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO payment_attempts(
	 id, idempotency_key, customer_id, customer_name, amount, currency, status, tries, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, 'pending', 1, ?, ?)
	ON CONFLICT(idempotency_key) DO UPDATE SET
	 amount=excluded.amount,
	 currency=excluded.currency,
	 status='pending',
	 error=NULL,
	 tries=payment_attempts.tries+1,
	 updated_at=excluded.updated_at;
	`, a.ID, a.IdempotencyKey, a.CustomerID, a.CustomerName, a.Amount, a.Currency, now, now)
	if err != nil {
		return fmt.Errorf("begin attempt: %w", err)
	}
	return nil
}

// MarkSucceeded closes an attempt with the backend's reported balance.
func (r *PaymentAttemptRepo) MarkSucceeded(ctx context.Context, key string, newDebt string) error {
	return r.finish(ctx, key, AttemptSucceeded, &newDebt, nil)
}

// MarkFailed closes an attempt with the failure text.
func (r *PaymentAttemptRepo) MarkFailed(ctx context.Context, key string, reason string) error {
	return r.finish(ctx, key, AttemptFailed, nil, &reason)
}

func (r *PaymentAttemptRepo) finish(ctx context.Context, key string, status AttemptStatus, newDebt, reason *string) error {
	res, err := r.db.ExecContext(ctx, `
	UPDATE payment_attempts SET status = ?, new_debt = ?, error = ?, updated_at = ?
	WHERE idempotency_key = ?`, string(status), newDebt, reason, r.now(), key)
	if err != nil {
		return fmt.Errorf("mark attempt %s: %w", status, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark attempt %s: no attempt for key %s", status, key)
	}
	return nil
}

// ByKey returns the attempt for an idempotency key, or nil when absent.
func (r *PaymentAttemptRepo) ByKey(ctx context.Context, key string) (*PaymentAttempt, error) {
	row := r.db.QueryRowContext(ctx, selectAttempts+` WHERE idempotency_key = ?`, key)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Recent lists the newest attempts first.
func (r *PaymentAttemptRepo) Recent(ctx context.Context, limit int) ([]PaymentAttempt, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, selectAttempts+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PaymentAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Prune deletes finished attempts older than cutoff. Pending rows are kept.
func (r *PaymentAttemptRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payment_attempts WHERE status != 'pending' AND updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune attempts: %w", err)
	}
	return res.RowsAffected()
}

const selectAttempts = `SELECT id, idempotency_key, customer_id, customer_name, amount, currency, status, tries,
	new_debt, error, created_at, updated_at FROM payment_attempts`

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(s scanner) (PaymentAttempt, error) {
	var a PaymentAttempt
	var status string
	var newDebt, reason sql.NullString
	if err := s.Scan(&a.ID, &a.IdempotencyKey, &a.CustomerID, &a.CustomerName, &a.Amount, &a.Currency,
		&status, &a.Tries, &newDebt, &reason, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return PaymentAttempt{}, err
	}
	a.Status = AttemptStatus(status)
	if newDebt.Valid {
		a.NewDebt = &newDebt.String
	}
	if reason.Valid {
		a.Error = &reason.String
	}
	return a, nil
}
