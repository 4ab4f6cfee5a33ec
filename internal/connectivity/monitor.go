package connectivity

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/farhanzaki/apotekgo/internal/domain"
	"github.com/farhanzaki/apotekgo/pkg/logger"
	"github.com/farhanzaki/apotekgo/pkg/metrics"
)

// Probe reports whether the network is currently reachable.
type Probe func(ctx context.Context) bool

// DialProbe probes reachability with a TCP dial against addr.
func DialProbe(addr string, timeout time.Duration) Probe {
	return func(ctx context.Context) bool {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}
}

// Monitor observes network reachability through a periodic probe and
// publishes state transitions to subscribers. It is purely
// observational: consumers decide what to do with the signal.
type Monitor struct {
	mu          sync.Mutex
	state       domain.ConnState
	subscribers []chan domain.ConnState
	probe       Probe
	interval    time.Duration
}

var _ domain.ConnectivityMonitor = (*Monitor)(nil)

// MonitorConfig defines runtime options for the monitor.
type MonitorConfig struct {
	Probe         Probe
	ProbeInterval time.Duration
	InitialState  domain.ConnState
}

// NewMonitor builds a monitor. A nil probe leaves state changes entirely
// to SetState, which tests and platform reachability callbacks use.
func NewMonitor(cfg MonitorConfig) *Monitor {
	interval := cfg.ProbeInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	state := cfg.InitialState
	if state == "" {
		state = domain.ConnOffline
	}
	return &Monitor{
		state:    state,
		probe:    cfg.Probe,
		interval: interval,
	}
}

// Current returns the last observed state.
func (m *Monitor) Current() domain.ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe returns a channel delivering state transitions. The channel
// is buffered; a subscriber that lags only misses intermediate states.
func (m *Monitor) Subscribe() <-chan domain.ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan domain.ConnState, 4)
	m.subscribers = append(m.subscribers, ch)
	return ch
}

// SetState records an externally observed state, notifying subscribers
// on transitions.
func (m *Monitor) SetState(state domain.ConnState) {
	m.mu.Lock()
	if m.state == state {
		m.mu.Unlock()
		return
	}
	m.state = state
	subs := make([]chan domain.ConnState, len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	metrics.SetConnectivity(state == domain.ConnOnline)
	logger.Info("Connectivity changed", logger.String("state", string(state)))

	for _, ch := range subs {
		select {
		case ch <- state:
		default:
			// Drop for a full subscriber; it reads Current() anyway.
		}
	}
}

// Start launches the probe loop. It blocks until context cancellation
// and is a no-op when no probe is configured.
func (m *Monitor) Start(ctx context.Context) {
	if m.probe == nil {
		return
	}

	logger.Info("Connectivity monitor started")
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Connectivity monitor stopping", logger.ErrorField(ctx.Err()))
			return
		case <-ticker.C:
			if m.probe(ctx) {
				m.SetState(domain.ConnOnline)
			} else {
				m.SetState(domain.ConnOffline)
			}
		}
	}
}
