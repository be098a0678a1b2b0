package upstream

import (
	"context"
	"sync"
	"time"
)

// throttledFactory gates Client construction: up to MaxClients builds are
// admitted immediately, then the counter resets and the next build sleeps
// Wait before proceeding. Anonymous login to the upstream API is
// rate-sensitive and too many constructions in a short window gets the
// whole process rejected.
type throttledFactory struct {
	inner Factory

	mu  sync.Mutex
	num int

	MaxClients int
	Wait       time.Duration
}

// NewThrottledFactory wraps inner with the default token-bucket policy:
// capacity 10, bulk-refilled by a 1s sleep.
func NewThrottledFactory(inner Factory) Factory {
	return &throttledFactory{inner: inner, MaxClients: 10, Wait: time.Second}
}

func (f *throttledFactory) Build(ctx context.Context) (Client, error) {
	f.mu.Lock()
	f.num++
	over := f.num > f.MaxClients
	if over {
		f.num = 0
	}
	f.mu.Unlock()

	if over {
		select {
		case <-time.After(f.Wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.inner.Build(ctx)
}
