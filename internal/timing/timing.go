// Package timing measures how often something happens.
package timing

import (
	"sync"
	"time"
)

// RunningAvg keeps the mean interval between the last n ticks. The window
// starts filled with zero intervals, so early averages are low.
type RunningAvg struct {
	mu     sync.Mutex
	window []time.Duration
	next   int
	sum    time.Duration
	last   time.Time
	now    func() time.Time
}

// NewRunningAvg returns a timer averaging over n intervals, starting now.
func NewRunningAvg(n int) *RunningAvg {
	return newRunningAvg(n, time.Now)
}

func newRunningAvg(n int, now func() time.Time) *RunningAvg {
	return &RunningAvg{
		window: make([]time.Duration, max(n, 1)),
		last:   now(),
		now:    now,
	}
}

// Tick records the interval since the previous tick.
func (r *RunningAvg) Tick() {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.now()
	d := t.Sub(r.last)
	r.last = t

	r.sum += d - r.window[r.next]
	r.window[r.next] = d
	r.next = (r.next + 1) % len(r.window)
}

// Avg returns the mean interval over the window.
func (r *RunningAvg) Avg() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sum / time.Duration(len(r.window))
}

// Rate returns ticks per second, or 0 before any time has passed.
func (r *RunningAvg) Rate() float64 {
	avg := r.Avg()
	if avg <= 0 {
		return 0
	}
	return float64(time.Second) / float64(avg)
}
