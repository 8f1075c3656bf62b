package engine

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"
)

// TickerLocks serializes work per ticker while letting different tickers
// proceed in parallel. Entries are dropped once nobody holds or waits on
// them.
type TickerLocks struct {
	mu    sync.Mutex
	locks map[string]*tickerLock
}

type tickerLock struct {
	sem  *semaphore.Weighted
	refs int
}

// NewTickerLocks creates an empty lock table.
func NewTickerLocks() *TickerLocks {
	return &TickerLocks{locks: make(map[string]*tickerLock)}
}

// Lock blocks until the caller holds ticker's lock or ctx is done. On
// success it returns the unlock function.
func (t *TickerLocks) Lock(ctx context.Context, ticker string) (unlock func(), err error) {
	key := strings.ToUpper(ticker)

	t.mu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &tickerLock{sem: semaphore.NewWeighted(1)}
		t.locks[key] = l
	}
	l.refs++
	t.mu.Unlock()

	if err := l.sem.Acquire(ctx, 1); err != nil {
		t.release(key, l)
		return nil, err
	}

	return func() {
		l.sem.Release(1)
		t.release(key, l)
	}, nil
}

func (t *TickerLocks) release(key string, l *tickerLock) {
	t.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(t.locks, key)
	}
	t.mu.Unlock()
}

// Len returns the number of tickers currently locked or waited on.
func (t *TickerLocks) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
