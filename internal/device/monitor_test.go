package device

import (
	"context"
	"testing"
	"time"
)

func TestMonitorSweepsUntilClosed(t *testing.T) {
	r, _, queue := newTestRegistry()
	r.SetLivenessThreshold(1)
	ctx := context.Background()

	if _, rerr := r.Register(ctx, "dev-1", "pw", 0); rerr != nil {
		t.Fatalf("Register() error = %v", rerr)
	}
	r.records["dev-1"].Enabled = true

	m := NewMonitor(r, 10*time.Millisecond)
	m.Start(ctx)

	deadline := time.After(2 * time.Second)
	for len(queue.snapshot()) == 0 {
		select {
		case <-deadline:
			t.Fatalf("monitor never raised the lost-connection alert")
		case <-time.After(5 * time.Millisecond):
		}
	}

	m.Close()

	// After Close the loop is gone; the counter stops advancing.
	ticks := r.records["dev-1"].TicksWithoutMessages
	time.Sleep(30 * time.Millisecond)
	if got := r.records["dev-1"].TicksWithoutMessages; got != ticks {
		t.Errorf("sweep still running after Close: %d -> %d", ticks, got)
	}
}

func TestMonitorCloseWithoutStart(t *testing.T) {
	r, _, _ := newTestRegistry()
	m := NewMonitor(r, time.Second)
	m.Close() // must not panic or block
}

func TestMonitorDefaultInterval(t *testing.T) {
	r, _, _ := newTestRegistry()
	m := NewMonitor(r, 0)
	if m.interval != defaultMonitorInterval {
		t.Errorf("interval = %v, want %v", m.interval, defaultMonitorInterval)
	}
}
