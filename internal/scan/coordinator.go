package scan

import (
	"sync"
	"time"

	"github.com/nerrad567/sensord/internal/capability"
)

// Logger is the minimal logging interface used by the coordinator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Publisher receives normalized scan events for dispatch.
type Publisher interface {
	Publish(ev capability.Event)
}

// Metrics receives scan cycle statistics. Optional.
type Metrics interface {
	ScanCycleCompleted(kind string, duration time.Duration, results int)
}

// cycle is the per-kind scan state.
//
// States: idle (not running), requested/armed (running, not inFlight),
// in-flight (running, inFlight). The timer tick while inFlight is a no-op,
// which prevents overlapping cycles.
type cycle struct {
	running  bool
	inFlight bool
	started  time.Time
	last     []capability.ScanResult
	stop     chan struct{}
}

// Coordinator owns the periodic wifi and bluetooth discovery cycles.
//
// A physical cycle runs only while at least one connection demands it.
// Demand arrives per capability type through Activate/Deactivate:
// "wifi_scan" and "bluetooth_scan" each demand one cycle, "network_scan"
// demands both. The coordinator aggregates those into per-cycle counts so
// one radio serves every subscriber shape.
type Coordinator struct {
	scanner   capability.Scanner
	publisher Publisher
	logger    Logger
	metrics   Metrics
	interval  time.Duration

	mu     sync.Mutex
	cycles map[capability.ScanKind]*cycle
	demand map[capability.ScanKind]int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(l Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithMetrics sets the scan statistics receiver.
func WithMetrics(m Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// New creates a Coordinator running cycles every interval while demanded.
func New(scanner capability.Scanner, publisher Publisher, interval time.Duration, opts ...Option) *Coordinator {
	c := &Coordinator{
		scanner:   scanner,
		publisher: publisher,
		logger:    noopLogger{},
		interval:  interval,
		cycles: map[capability.ScanKind]*cycle{
			capability.ScanWifi:      {},
			capability.ScanBluetooth: {},
		},
		demand: make(map[capability.ScanKind]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// kindsFor maps a scan capability type to the physical cycles it demands.
func kindsFor(capType string) []capability.ScanKind {
	switch capType {
	case capability.TypeWifiScan:
		return []capability.ScanKind{capability.ScanWifi}
	case capability.TypeBluetoothScan:
		return []capability.ScanKind{capability.ScanBluetooth}
	case capability.TypeNetworkScan:
		return []capability.ScanKind{capability.ScanWifi, capability.ScanBluetooth}
	default:
		return nil
	}
}

// Activate registers demand for a scan capability type. The first demand
// on a physical cycle starts an immediate scan and arms the repeat timer.
// Called by the registry on 0→1 reference transitions.
func (c *Coordinator) Activate(capType string) error {
	for _, kind := range kindsFor(capType) {
		c.mu.Lock()
		c.demand[kind]++
		first := c.demand[kind] == 1
		c.mu.Unlock()

		if first {
			c.startCycle(kind)
		}
	}
	return nil
}

// Deactivate removes demand for a scan capability type. A physical cycle
// with no remaining demand stops before its next tick would fire.
// Called by the registry on 1→0 reference transitions.
func (c *Coordinator) Deactivate(capType string) {
	for _, kind := range kindsFor(capType) {
		c.mu.Lock()
		c.demand[kind]--
		last := c.demand[kind] == 0
		c.mu.Unlock()

		if last {
			c.stopCycle(kind)
		}
	}
}

// startCycle arms the repeat timer for kind and requests the first scan.
func (c *Coordinator) startCycle(kind capability.ScanKind) {
	c.mu.Lock()
	cy := c.cycles[kind]
	if cy.running {
		c.mu.Unlock()
		return
	}
	cy.running = true
	cy.stop = make(chan struct{})
	stop := cy.stop
	c.mu.Unlock()

	c.logger.Info("scan cycle activated", "kind", string(kind), "interval", c.interval)

	c.beginScan(kind)

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.beginScan(kind)
			}
		}
	}()
}

// stopCycle cancels the repeat timer for kind.
func (c *Coordinator) stopCycle(kind capability.ScanKind) {
	c.mu.Lock()
	cy := c.cycles[kind]
	if !cy.running {
		c.mu.Unlock()
		return
	}
	cy.running = false
	close(cy.stop)
	cy.stop = nil
	c.mu.Unlock()

	c.logger.Info("scan cycle deactivated", "kind", string(kind))
}

// beginScan requests one discovery pass, debouncing in-flight cycles.
// Start failures (radio off, permission revoked mid-session) are logged
// and retried on the next tick; subscribers stay connected with no data.
func (c *Coordinator) beginScan(kind capability.ScanKind) {
	c.mu.Lock()
	cy := c.cycles[kind]
	if !cy.running || cy.inFlight {
		c.mu.Unlock()
		return
	}
	cy.inFlight = true
	cy.started = time.Now()
	c.mu.Unlock()

	if err := c.scanner.StartScan(kind, c.onComplete); err != nil {
		c.mu.Lock()
		cy.inFlight = false
		c.mu.Unlock()
		c.logger.Warn("scan start failed, will retry next tick",
			"kind", string(kind), "error", err)
	}
}

// onComplete merges a finished cycle's results and emits the normalized
// events: the kind's own slice plus the combined network_scan set.
func (c *Coordinator) onComplete(kind capability.ScanKind, results []capability.ScanResult, err error) {
	c.mu.Lock()
	cy := c.cycles[kind]
	cy.inFlight = false
	duration := time.Since(cy.started)
	running := cy.running
	if err == nil {
		cy.last = results
	}
	merged := c.mergedLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("scan cycle failed", "kind", string(kind), "error", err)
		return
	}
	if !running {
		// Demand dropped to zero while the cycle was airborne.
		return
	}

	c.logger.Debug("scan cycle complete",
		"kind", string(kind), "results", len(results), "duration", duration)
	if c.metrics != nil {
		c.metrics.ScanCycleCompleted(string(kind), duration, len(results))
	}

	switch kind {
	case capability.ScanWifi:
		c.publisher.Publish(capability.Event{
			Capability: capability.TypeWifiScan,
			Payload:    capability.ScanPayload(capability.TypeWifiScan, results),
		})
	case capability.ScanBluetooth:
		c.publisher.Publish(capability.Event{
			Capability: capability.TypeBluetoothScan,
			Payload:    capability.ScanPayload(capability.TypeBluetoothScan, results),
		})
	}

	c.publisher.Publish(capability.Event{
		Capability: capability.TypeNetworkScan,
		Payload:    capability.ScanPayload(capability.TypeNetworkScan, merged),
	})
}

// mergedLocked returns the union of the latest result sets of both kinds.
// Callers must hold c.mu.
func (c *Coordinator) mergedLocked() []capability.ScanResult {
	wifi := c.cycles[capability.ScanWifi].last
	bt := c.cycles[capability.ScanBluetooth].last

	merged := make([]capability.ScanResult, 0, len(wifi)+len(bt))
	merged = append(merged, wifi...)
	merged = append(merged, bt...)
	return merged
}

// Running reports whether the repeat timer for kind is armed.
func (c *Coordinator) Running(kind capability.ScanKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycles[kind].running
}

// InFlight reports whether a cycle for kind is currently airborne.
func (c *Coordinator) InFlight(kind capability.ScanKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycles[kind].inFlight
}

// Stop cancels every armed timer. Called at server shutdown, after all
// connections have detached.
func (c *Coordinator) Stop() {
	for _, kind := range []capability.ScanKind{capability.ScanWifi, capability.ScanBluetooth} {
		c.stopCycle(kind)
	}
}
