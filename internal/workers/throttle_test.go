package workers

import (
	"testing"
	"time"
)

func TestProgressThrottle(t *testing.T) {
	now := time.Unix(1000, 0)
	throttle := newProgressThrottle(2 * time.Second)
	throttle.now = func() time.Time { return now }

	if !throttle.allow(10) {
		t.Fatal("first report should pass")
	}
	now = now.Add(time.Second)
	if throttle.allow(20) {
		t.Fatal("report inside the interval should be dropped")
	}
	now = now.Add(2 * time.Second)
	if !throttle.allow(30) {
		t.Fatal("report after the interval should pass")
	}

	// The terminal value ignores the rate limit.
	now = now.Add(time.Millisecond)
	if !throttle.allow(100) {
		t.Fatal("final update must always pass")
	}
}
