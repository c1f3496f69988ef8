package embedding

import (
	"math"
	"sync"
	"time"
)

// ProgressTracker tracks the share of a course's chunks that have been embedded.
// Percent never decreases while the tracker runs.
type ProgressTracker struct {
	total     int
	current   int
	percent   float64
	startTime time.Time
	started   bool
	mu        sync.Mutex
}

// NewProgressTracker creates a tracker for total items.
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{total: total}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.current = 0
	p.percent = 0
}

// Increment adds delta processed items and returns the new percentage.
func (p *ProgressTracker) Increment(delta int) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	p.current = min(p.current+delta, p.total)
	if pct := Percent(p.current, p.total); pct > p.percent {
		p.percent = pct
	}
	return p.percent
}

// Current returns the number of processed items.
func (p *ProgressTracker) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

// Percent returns processed/total as a percentage rounded to two decimals
// and clamped to 100. An empty total counts as complete.
func Percent(processed, total int) float64 {
	if total <= 0 {
		return 100
	}
	pct := math.Round(float64(processed)/float64(total)*100*100) / 100
	return math.Min(pct, 100)
}
