package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/dvloznov/customer-etl/internal/jobs"
)

// Lock is a process-local RunLock. A holder that never releases loses the
// lock after ttl.
type Lock struct {
	mu      sync.Mutex
	owner   string
	expires time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewLock creates a lock whose holders expire after ttl; zero means never.
func NewLock(ttl time.Duration) *Lock {
	return &Lock{ttl: ttl, now: time.Now}
}

// TryAcquire implements the RunLock interface.
func (l *Lock) TryAcquire(ctx context.Context, owner string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.owner != "" && l.owner != owner && (l.ttl <= 0 || now.Before(l.expires)) {
		return false, nil
	}

	l.owner = owner
	l.expires = now.Add(l.ttl)
	return true, nil
}

// Release implements the RunLock interface.
func (l *Lock) Release(ctx context.Context, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.owner == owner {
		l.owner = ""
	}
	return nil
}

// Ensure Lock implements RunLock interface.
var _ jobs.RunLock = (*Lock)(nil)
