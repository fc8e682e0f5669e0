// Package query caches backend collections by key and tracks their
// freshness, so views can invalidate and refetch explicitly.
package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Collection keys shared by the dashboard.
const (
	KeyCustomers    = "customers"
	KeyTransactions = "transactions"
)

// Status is the lifecycle of a cached entry.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ErrUnknownKey is returned for keys without a registered fetcher.
var ErrUnknownKey = errors.New("query: unknown key")

// Fetcher loads one collection.
type Fetcher func(ctx context.Context) (any, error)

// Snapshot is a point-in-time copy of an entry.
type Snapshot struct {
	Key       string
	Data      any
	Err       error
	Status    Status
	Stale     bool
	UpdatedAt time.Time
	Attempts  int
}

// Options tunes the cache.
type Options struct {
	// Retries is the number of extra attempts after a failed load.
	Retries int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
	Logger  logrus.FieldLogger
	Now     func() time.Time
}

type entry struct {
	fetch     Fetcher
	data      any
	err       error
	status    Status
	stale     bool
	updatedAt time.Time
	attempts  int
	gen       uint64
}

// Cache holds collections keyed by name. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	opts    Options
}

// New returns an empty cache.
func New(opts Options) *Cache {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}
	return &Cache{entries: map[string]*entry{}, opts: opts}
}

// Register binds key to fetch. Re-registering replaces the fetcher and
// marks the entry stale.
func (c *Cache) Register(key string, fetch Fetcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.fetch = fetch
		e.stale = true
		return
	}
	c.entries[key] = &entry{fetch: fetch, status: StatusIdle, stale: true}
}

// Fetch returns the cached data for key, loading it first when the entry
// has never loaded or is stale.
func (c *Cache) Fetch(ctx context.Context, key string) (Snapshot, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return Snapshot{Key: key}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if !e.stale && e.status == StatusSuccess {
		snap := e.snapshot(key)
		c.mu.Unlock()
		return snap, nil
	}
	c.mu.Unlock()
	return c.Refetch(ctx, key)
}

// Invalidate marks key stale. Data stays readable until the next load.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.stale = true
		c.opts.Logger.WithField("key", key).Debug("invalidated")
	}
}

// Refetch loads key unconditionally and stores the outcome. When several
// refetches overlap, the last one started wins.
func (c *Cache) Refetch(ctx context.Context, key string) (Snapshot, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return Snapshot{Key: key}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	e.gen++
	gen := e.gen
	e.status = StatusLoading
	fetch := e.fetch
	c.mu.Unlock()

	data, attempts, err := c.load(ctx, key, fetch)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != e.gen {
		return e.snapshot(key), err
	}
	e.attempts = attempts
	if err != nil {
		e.err = err
		e.status = StatusError
		return e.snapshot(key), err
	}
	e.data = data
	e.err = nil
	e.status = StatusSuccess
	e.stale = false
	e.updatedAt = c.opts.Now()
	return e.snapshot(key), nil
}

// Snapshot returns the current entry for key without loading.
func (c *Cache) Snapshot(key string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Snapshot{Key: key, Status: StatusIdle}
	}
	return e.snapshot(key)
}

func (c *Cache) load(ctx context.Context, key string, fetch Fetcher) (any, int, error) {
	log := c.opts.Logger.WithField("key", key)
	var lastErr error
	for attempt := 1; attempt <= c.opts.Retries+1; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, attempt - 1, fmt.Errorf("query %s: %w", key, ctx.Err())
			case <-time.After(c.opts.Backoff * time.Duration(attempt-1)):
			}
		}
		data, err := fetch(ctx)
		if err == nil {
			return data, attempt, nil
		}
		lastErr = err
		log.WithError(err).WithField("attempt", attempt).Warn("load failed")
		if ctx.Err() != nil {
			return nil, attempt, fmt.Errorf("query %s: %w", key, err)
		}
	}
	return nil, c.opts.Retries + 1, fmt.Errorf("query %s: %w", key, lastErr)
}

func (e *entry) snapshot(key string) Snapshot {
	return Snapshot{
		Key:       key,
		Data:      e.data,
		Err:       e.err,
		Status:    e.status,
		Stale:     e.stale,
		UpdatedAt: e.updatedAt,
		Attempts:  e.attempts,
	}
}
