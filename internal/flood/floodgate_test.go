package flood

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestFloodgate(t *testing.T, limit int) (*Floodgate, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	fg := New(limit)
	t.Cleanup(fg.Stop)

	fg.mutex.Lock()
	fg.now = clock.Now
	fg.mutex.Unlock()
	return fg, clock
}

func TestFloodgate_Allow_LimitsPerMinute(t *testing.T) {
	fg, _ := newTestFloodgate(t, 3)

	for i := 0; i < 3; i++ {
		if !fg.Allow("10.0.0.1") {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	if fg.Allow("10.0.0.1") {
		t.Error("4th request should be blocked")
	}
}

func TestFloodgate_Allow_SlidingWindow(t *testing.T) {
	fg, clock := newTestFloodgate(t, 2)

	fg.Allow("client")
	clock.Advance(30 * time.Second)
	fg.Allow("client")

	if fg.Allow("client") {
		t.Fatal("Third request inside the window should be blocked")
	}

	if got := fg.RetryAfter("client"); got != 30*time.Second {
		t.Errorf("RetryAfter() = %v, expected 30s", got)
	}

	clock.Advance(31 * time.Second)
	if !fg.Allow("client") {
		t.Error("Request after the first timestamp left the window should be allowed")
	}
	if fg.Allow("client") {
		t.Error("Window should be full again")
	}
}

func TestFloodgate_Allow_PerClient(t *testing.T) {
	fg, _ := newTestFloodgate(t, 1)

	if !fg.Allow("a") || !fg.Allow("b") {
		t.Error("Different clients must have separate limits")
	}
	if fg.Allow("a") {
		t.Error("Client a should be blocked")
	}
}

func TestFloodgate_Allow_Disabled(t *testing.T) {
	fg, _ := newTestFloodgate(t, 0)

	for i := 0; i < 100; i++ {
		if !fg.Allow("client") {
			t.Fatal("A zero limit must disable limiting")
		}
	}
	if fg.RetryAfter("client") != 0 {
		t.Error("RetryAfter() must be zero when disabled")
	}
}

func TestFloodgate_Cleanup(t *testing.T) {
	fg, clock := newTestFloodgate(t, 5)

	fg.Allow("idle")
	clock.Advance(idleTimeout + time.Second)
	fg.Allow("active")

	fg.performCleanup()

	stats := fg.GetStats()
	if stats.ActiveClients != 1 {
		t.Errorf("ActiveClients = %d, expected 1", stats.ActiveClients)
	}
	if stats.LimitPerMinute != 5 || stats.WindowSeconds != 60 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestFloodgate_StopIdempotent(t *testing.T) {
	fg := New(1)
	fg.Stop()
	fg.Stop()
}

func TestFloodgate_Concurrent(t *testing.T) {
	fg, _ := newTestFloodgate(t, 50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if fg.Allow("client") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("Allowed %d requests, expected 50", allowed)
	}
}
