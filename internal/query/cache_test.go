package query

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func counter(results ...error) (Fetcher, *atomic.Int32) {
	var calls atomic.Int32
	return func(context.Context) (any, error) {
		n := int(calls.Add(1))
		if n <= len(results) && results[n-1] != nil {
			return nil, results[n-1]
		}
		return n, nil
	}, &calls
}

func TestFetchCachesUntilInvalidated(t *testing.T) {
	c := New(Options{})
	fetch, calls := counter()
	c.Register(KeyCustomers, fetch)

	snap, err := c.Fetch(context.Background(), KeyCustomers)
	require.NoError(t, err)
	require.Equal(t, 1, snap.Data)
	require.Equal(t, StatusSuccess, snap.Status)
	require.False(t, snap.Stale)

	snap, err = c.Fetch(context.Background(), KeyCustomers)
	require.NoError(t, err)
	require.Equal(t, 1, snap.Data)
	require.EqualValues(t, 1, calls.Load())

	c.Invalidate(KeyCustomers)
	stale := c.Snapshot(KeyCustomers)
	require.True(t, stale.Stale)
	require.Equal(t, 1, stale.Data, "stale data stays readable")

	snap, err = c.Fetch(context.Background(), KeyCustomers)
	require.NoError(t, err)
	require.Equal(t, 2, snap.Data)
	require.EqualValues(t, 2, calls.Load())
}

func TestRefetchAlwaysLoads(t *testing.T) {
	c := New(Options{})
	fetch, calls := counter()
	c.Register(KeyTransactions, fetch)

	for i := 0; i < 3; i++ {
		_, err := c.Refetch(context.Background(), KeyTransactions)
		require.NoError(t, err)
	}
	require.EqualValues(t, 3, calls.Load())
}

func TestNoRetryByDefault(t *testing.T) {
	c := New(Options{})
	boom := errors.New("boom")
	fetch, calls := counter(boom, boom)
	c.Register(KeyCustomers, fetch)

	snap, err := c.Fetch(context.Background(), KeyCustomers)
	require.ErrorIs(t, err, boom)
	require.Equal(t, StatusError, snap.Status)
	require.ErrorIs(t, snap.Err, boom)
	require.Equal(t, 1, snap.Attempts)
	require.EqualValues(t, 1, calls.Load())
}

func TestRetriesRecover(t *testing.T) {
	c := New(Options{Retries: 2, Backoff: time.Millisecond})
	boom := errors.New("boom")
	fetch, calls := counter(boom, boom)
	c.Register(KeyCustomers, fetch)

	snap, err := c.Fetch(context.Background(), KeyCustomers)
	require.NoError(t, err)
	require.Equal(t, 3, snap.Data)
	require.Equal(t, 3, snap.Attempts)
	require.EqualValues(t, 3, calls.Load())
}

func TestErrorKeepsPreviousData(t *testing.T) {
	c := New(Options{})
	boom := errors.New("down")
	fetch, _ := counter(nil, boom)
	c.Register(KeyCustomers, fetch)

	_, err := c.Fetch(context.Background(), KeyCustomers)
	require.NoError(t, err)
	_, err = c.Refetch(context.Background(), KeyCustomers)
	require.ErrorIs(t, err, boom)

	snap := c.Snapshot(KeyCustomers)
	require.Equal(t, StatusError, snap.Status)
	require.Equal(t, 1, snap.Data)
}

func TestCancelledContextStopsRetries(t *testing.T) {
	c := New(Options{Retries: 5, Backoff: time.Hour})
	boom := errors.New("boom")
	fetch, calls := counter(boom, boom, boom)
	c.Register(KeyCustomers, fetch)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Fetch(ctx, KeyCustomers)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.EqualValues(t, 1, calls.Load())
}

func TestUnknownKey(t *testing.T) {
	c := New(Options{})
	_, err := c.Fetch(context.Background(), "nope")
	require.ErrorIs(t, err, ErrUnknownKey)
	_, err = c.Refetch(context.Background(), "nope")
	require.ErrorIs(t, err, ErrUnknownKey)
	c.Invalidate("nope")
	require.Equal(t, StatusIdle, c.Snapshot("nope").Status)
}
