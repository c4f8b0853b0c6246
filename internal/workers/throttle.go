package workers

import (
	"sync"
	"time"
)

// progressThrottle caps how often a job's progress is persisted and
// broadcast. Terminal values (>= 100) always pass.
type progressThrottle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

func newProgressThrottle(interval time.Duration) *progressThrottle {
	return &progressThrottle{interval: interval, now: time.Now}
}

func (t *progressThrottle) allow(percent float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if percent >= 100 {
		t.last = now
		return true
	}
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
