package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/debtboard/internal/database"
	"github.com/jask/debtboard/internal/database/repository"
)

func openJournal(t *testing.T) *repository.PaymentAttemptRepo {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.RunMigrations(db))
	// second run is a no-op
	require.NoError(t, database.RunMigrations(db))
	return repository.NewPaymentAttemptRepo(db)
}

func TestPaymentAttemptLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := openJournal(t)

	require.NoError(t, repo.Begin(ctx, repository.PaymentAttempt{
		ID: "a1", IdempotencyKey: "k1", CustomerID: "abc123", CustomerName: "Ali", Amount: "500", Currency: "USD",
	}))
	got, err := repo.ByKey(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, repository.AttemptPending, got.Status)
	require.Equal(t, 1, got.Tries)
	require.Equal(t, "Ali", got.CustomerName)

	require.NoError(t, repo.MarkFailed(ctx, "k1", "502 Bad Gateway"))
	got, err = repo.ByKey(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, repository.AttemptFailed, got.Status)
	require.NotNil(t, got.Error)
	require.Equal(t, "502 Bad Gateway", *got.Error)

	// retry with the same key reuses the row
	require.NoError(t, repo.Begin(ctx, repository.PaymentAttempt{
		ID: "a2", IdempotencyKey: "k1", CustomerID: "abc123", CustomerName: "Ali", Amount: "500", Currency: "USD",
	}))
	got, err = repo.ByKey(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, "a1", got.ID)
	require.Equal(t, 2, got.Tries)
	require.Equal(t, repository.AttemptPending, got.Status)
	require.Nil(t, got.Error)

	require.NoError(t, repo.MarkSucceeded(ctx, "k1", "1000.00"))
	got, err = repo.ByKey(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, repository.AttemptSucceeded, got.Status)
	require.Equal(t, "1000.00", *got.NewDebt)
}

func TestPaymentAttemptMissingKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := openJournal(t)

	got, err := repo.ByKey(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, got)
	require.Error(t, repo.MarkSucceeded(ctx, "nope", "0"))
}

func TestPaymentAttemptRecentAndPrune(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := openJournal(t)

	for _, key := range []string{"k1", "k2", "k3"} {
		require.NoError(t, repo.Begin(ctx, repository.PaymentAttempt{
			ID: "id-" + key, IdempotencyKey: key, CustomerID: "c", Amount: "1", Currency: "USD",
		}))
	}
	require.NoError(t, repo.MarkSucceeded(ctx, "k1", "0"))
	require.NoError(t, repo.MarkFailed(ctx, "k2", "boom"))

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "k3", recent[0].IdempotencyKey)

	n, err := repo.Prune(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	recent, err = repo.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, repository.AttemptPending, recent[0].Status)
}
