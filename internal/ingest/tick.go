package ingest

import (
	"context"
	"sync"
	"time"
)

// TickBroadcaster fires a shared tick every interval, aligned to the next
// wall-clock boundary (ceil(now/interval)*interval), and fans it out to
// every subscriber. Subscribers receive via a buffered, non-blocking send
// — a writer that hasn't drained the previous tick simply misses this one,
// since all a writer needs is "has at least one tick fired since I last
// checked".
type TickBroadcaster struct {
	interval time.Duration

	mu   sync.Mutex
	subs []chan struct{}
}

func NewTickBroadcaster(interval time.Duration) *TickBroadcaster {
	return &TickBroadcaster{interval: interval}
}

// Subscribe returns a channel that receives a value each time the
// broadcaster ticks. The returned channel is never closed.
func (b *TickBroadcaster) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Run blocks, firing ticks until ctx is cancelled.
func (b *TickBroadcaster) Run(ctx context.Context) {
	next := nextAligned(time.Now(), b.interval)
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			b.fire()
			next = next.Add(b.interval)
			d := time.Until(next)
			if d < 0 {
				d = 0
			}
			timer.Reset(d)
		}
	}
}

func (b *TickBroadcaster) fire() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func nextAligned(now time.Time, interval time.Duration) time.Time {
	step := interval.Nanoseconds()
	if step <= 0 {
		return now
	}
	unix := now.UnixNano()
	rem := unix % step
	if rem == 0 {
		return now
	}
	return now.Add(time.Duration(step - rem))
}
