package logging

import "sync"

// ProgressSampler decides whether a progress value is worth logging. Values
// are bucketed so a chatty encoder emitting dozens of updates per percent
// produces at most one log line per bucket.
type ProgressSampler struct {
	mu         sync.Mutex
	bucketSize float64
	lastBucket map[string]int
}

// NewProgressSampler returns a sampler with the given bucket width in
// percentage points. Non-positive widths fall back to 5.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{
		bucketSize: bucketSize,
		lastBucket: make(map[string]int),
	}
}

// ShouldLog reports whether the given percent crosses into a new bucket for
// the key. Terminal values (>= 100) always log.
func (s *ProgressSampler) ShouldLog(key string, percent float64) bool {
	if percent < 0 {
		percent = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if percent >= 100 {
		s.lastBucket[key] = int(100 / s.bucketSize)
		return true
	}

	bucket := int(percent / s.bucketSize)
	last, seen := s.lastBucket[key]
	if seen && bucket <= last {
		return false
	}
	s.lastBucket[key] = bucket
	return true
}

// Reset forgets sampling state for a key. Call when a job finishes so a
// retried job starts fresh.
func (s *ProgressSampler) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lastBucket, key)
}
