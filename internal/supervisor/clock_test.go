package supervisor

import (
	"sync"
	"syscall"
	"testing"
	"time"

	"videobridge/internal/job"
)

// fakeClock hands out timers that only fire when the test says so.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	ch chan time.Time
	d  time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{ch: make(chan time.Time, 1), d: d}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }
func (t *fakeTimer) Stop() bool          { return true }

// waitForTimer blocks until a timer with the given duration was requested.
func (c *fakeClock) waitForTimer(t *testing.T, d time.Duration, timeout time.Duration) *fakeTimer {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		for _, timer := range c.timers {
			if timer.d == d {
				c.mu.Unlock()
				return timer
			}
		}
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no timer with duration %v was created", d)
	return nil
}

func (t *fakeTimer) fire() {
	t.ch <- time.Time{}
}

func TestEscalationWaitsForGraceTimer(t *testing.T) {
	clock := newFakeClock()
	grace := 7 * time.Second
	h := newHarness(t, Options{GraceWindow: grace, KillWait: 8 * time.Second, Clock: clock})

	spec := shSpec(t, job.KindTranscribe, `trap '' INT; sleep 30`)
	handle, err := h.sup.Start(spec)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	h.sup.Cancel(job.KindTranscribe)
	graceTimer := clock.waitForTimer(t, grace, time.Second)

	// Before the grace timer fires the process only got the graceful signal,
	// which it ignores; it must still be alive.
	time.Sleep(200 * time.Millisecond)
	if err := syscall.Kill(handle.PID, 0); err != nil {
		t.Fatalf("process died before the grace window elapsed: %v", err)
	}

	graceTimer.fire()

	result := h.waitResult(t, 3*time.Second)
	h.sup.Wait()
	if result.State() != job.StateCancelled {
		t.Errorf("state = %s, want cancelled", result.State())
	}
	if result.Signal != "killed" {
		t.Errorf("signal = %q, want killed", result.Signal)
	}
}

func TestTimeoutFiresViaClock(t *testing.T) {
	clock := newFakeClock()
	timeout := 90 * time.Minute
	h := newHarness(t, Options{GraceWindow: time.Minute, KillWait: time.Minute, Clock: clock})

	spec := shSpec(t, job.KindTranscribe, "sleep 30")
	spec.Timeout = timeout

	if _, err := h.sup.Start(spec); err != nil {
		t.Fatalf("Start: %v", err)
	}

	clock.waitForTimer(t, timeout, time.Second).fire()

	// The plain sh process dies on the graceful signal; no escalation needed.
	result := h.waitResult(t, 3*time.Second)
	h.sup.Wait()
	if result.State() != job.StateTimedOut {
		t.Errorf("state = %s, want timed_out", result.State())
	}
	if result.ErrorKind != job.ErrorTimeout {
		t.Errorf("error kind = %s, want timeout", result.ErrorKind)
	}
}
