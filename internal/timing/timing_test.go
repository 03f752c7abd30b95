package timing

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestRunningAvg(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	r := newRunningAvg(4, clock.now)

	if r.Avg() != 0 || r.Rate() != 0 {
		t.Fatalf("fresh timer: Avg() = %v, Rate() = %v", r.Avg(), r.Rate())
	}

	// Window of zeros is only partly replaced.
	clock.advance(100 * time.Millisecond)
	r.Tick()
	if got := r.Avg(); got != 25*time.Millisecond {
		t.Errorf("Avg() after one tick = %v, want 25ms", got)
	}

	for i := 0; i < 3; i++ {
		clock.advance(100 * time.Millisecond)
		r.Tick()
	}
	if got := r.Avg(); got != 100*time.Millisecond {
		t.Errorf("Avg() = %v, want 100ms", got)
	}
	if got := r.Rate(); got != 10 {
		t.Errorf("Rate() = %v, want 10", got)
	}

	// Old intervals leave the window.
	for i := 0; i < 4; i++ {
		clock.advance(50 * time.Millisecond)
		r.Tick()
	}
	if got := r.Avg(); got != 50*time.Millisecond {
		t.Errorf("Avg() = %v, want 50ms", got)
	}
}

func TestRunningAvg_MinimumWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	r := newRunningAvg(0, clock.now)

	clock.advance(time.Second)
	r.Tick()
	if got := r.Avg(); got != time.Second {
		t.Errorf("Avg() = %v, want 1s", got)
	}
}
