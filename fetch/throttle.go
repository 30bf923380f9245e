package fetch

import (
	"context"
	"sync"
	"time"
)

// Throttle is a site-scoped cool-down gate. After a blocking signal any task
// about to hit the same site waits out the remaining cool-down first.
type Throttle struct {
	cooldown time.Duration

	mu    sync.Mutex
	until time.Time
}

// NewThrottle creates a throttle enforcing the given cool-down window.
func NewThrottle(cooldown time.Duration) *Throttle {
	return &Throttle{cooldown: cooldown}
}

// Trigger starts (or extends) the cool-down from now.
func (t *Throttle) Trigger() {
	if t == nil || t.cooldown <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	until := time.Now().Add(t.cooldown)
	if until.After(t.until) {
		t.until = until
	}
}

// Wait blocks until any active cool-down has elapsed or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	rest := time.Until(t.until)
	t.mu.Unlock()

	if rest <= 0 {
		return nil
	}

	timer := time.NewTimer(rest)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
