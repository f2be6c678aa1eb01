package device

import (
	"context"
	"time"
)

// defaultMonitorInterval is the length of one liveness polling window.
const defaultMonitorInterval = 5 * time.Second

// Monitor drives the periodic liveness sweep over the registry.
//
// Each device moves through four states: idle (disabled), live, suspect and
// alerted. The sweep advances counters once per window; receiving a message
// through Registry.IngestMessage is the only way back to live.
type Monitor struct {
	registry *Registry
	interval time.Duration
	logger   Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a liveness monitor over the given registry.
// A non-positive interval falls back to the default window length.
func NewMonitor(registry *Registry, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = defaultMonitorInterval
	}
	return &Monitor{
		registry: registry,
		interval: interval,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the monitor.
func (m *Monitor) SetLogger(logger Logger) {
	m.logger = logger
}

// Start launches the sweep loop in a background goroutine.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go m.run(ctx)
	m.logger.Info("liveness monitor started", "interval", m.interval)
}

// run executes one sweep per window until the context is cancelled.
// In-flight sweeps are not cancelled mid-pass.
func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// An empty registry means nothing to sweep this window.
			if m.registry.Count() == 0 {
				continue
			}
			m.registry.Sweep(ctx)
		}
	}
}

// Close stops the sweep loop and waits for the current sweep to finish.
func (m *Monitor) Close() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.logger.Info("liveness monitor stopped")
}
