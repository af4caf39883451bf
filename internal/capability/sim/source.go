// Package sim provides a deterministic in-process capability driver.
//
// It serves two purposes: it lets the sensord binary run on hosts with no
// sensing hardware, and it gives tests a fully scriptable producer for the
// subscription/dispatch pipeline. Values are synthetic but shaped like the
// real thing (three-axis motion sensors, a drifting location fix, scripted
// scan results).
package sim

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/sensord/internal/capability"
)

// defaultSampleInterval is the synthetic sensor emission period.
const defaultSampleInterval = 100 * time.Millisecond

// Driver implements capability.Source, Scanner, LocationProvider and
// TouchProvider with synthetic data.
//
// All methods are safe for concurrent use.
type Driver struct {
	sampleInterval time.Duration

	mu   sync.Mutex
	caps []capability.Capability
	subs map[string]chan struct{} // active sensor subscriptions, keyed by type

	// location state
	locStop   chan struct{}
	lastFix   capability.Fix
	hasFix    bool
	locErr    error // non-nil makes Available() fail
	radioOff  bool  // makes StartScan fail with ErrRadioDisabled
	scanDelay time.Duration

	// touch state
	touchFn capability.TouchFunc

	// scripted scan results per kind
	scanResults map[capability.ScanKind][]capability.ScanResult

	tick uint64
}

// Ensure Driver satisfies the driver-side contracts.
var (
	_ capability.Source  = (*Driver)(nil)
	_ capability.Scanner = (*Driver)(nil)
)

// Option configures a Driver.
type Option func(*Driver)

// WithSampleInterval sets the synthetic sensor emission period.
func WithSampleInterval(d time.Duration) Option {
	return func(dr *Driver) { dr.sampleInterval = d }
}

// WithScanDelay sets the simulated scan cycle duration.
func WithScanDelay(d time.Duration) Option {
	return func(dr *Driver) { dr.scanDelay = d }
}

// New creates a Driver with the default synthetic sensor set.
func New(opts ...Option) *Driver {
	d := &Driver{
		sampleInterval: defaultSampleInterval,
		scanDelay:      200 * time.Millisecond,
		subs:           make(map[string]chan struct{}),
		caps: []capability.Capability{
			{Type: "android.sensor.accelerometer", Name: "Accelerometer"},
			{Type: "android.sensor.gyroscope", Name: "Gyroscope"},
			{Type: "android.sensor.magnetic_field", Name: "Magnetometer"},
			{Type: "android.sensor.gravity", Name: "Gravity"},
			{Type: "android.sensor.linear_acceleration", Name: "Linear Acceleration"},
			{Type: "android.sensor.light", Name: "Ambient Light"},
			{Type: "android.sensor.proximity", Name: "Proximity"},
			{Type: "android.sensor.pressure", Name: "Barometer"},
			{Type: "android.sensor.step_counter", Name: "Step Counter"},
		},
		scanResults: map[capability.ScanKind][]capability.ScanResult{
			capability.ScanWifi: {
				{ID: "aa:bb:cc:dd:ee:01", Name: "home-net", Signal: -48},
				{ID: "aa:bb:cc:dd:ee:02", Name: "guest-net", Signal: -67},
			},
			capability.ScanBluetooth: {
				{ID: "11:22:33:44:55:01", Name: "earbuds", Signal: -55},
			},
		},
		lastFix: capability.Fix{
			Latitude:  51.4545,
			Longitude: -2.5879,
			Altitude:  11.0,
			Accuracy:  5.0,
			Time:      time.Now().UnixMilli(),
		},
	}

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// List returns the synthetic capability set plus location and touch.
func (d *Driver) List() []capability.Capability {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]capability.Capability, len(d.caps), len(d.caps)+2)
	copy(out, d.caps)
	out = append(out,
		capability.Capability{Type: capability.TypeLocation, Name: "GPS"},
		capability.Capability{Type: capability.TypeTouch, Name: "Touchscreen"},
	)
	return out
}

// Find looks up a capability by type, case-insensitively.
func (d *Driver) Find(capType string) (capability.Capability, bool) {
	for _, c := range d.List() {
		if strings.EqualFold(c.Type, capType) {
			return c, true
		}
	}
	return capability.Capability{}, false
}

// Subscribe starts synthetic event production for a hardware capability.
func (d *Driver) Subscribe(capType string, fn capability.EventFunc) error {
	c, ok := d.Find(capType)
	if !ok {
		return capability.ErrNotFound
	}

	d.mu.Lock()
	if _, exists := d.subs[c.Type]; exists {
		d.mu.Unlock()
		return capability.ErrAlreadySubscribed
	}
	stop := make(chan struct{})
	d.subs[c.Type] = stop
	d.mu.Unlock()

	go d.emitLoop(c, fn, stop)
	return nil
}

// Unsubscribe stops event production for a hardware capability.
func (d *Driver) Unsubscribe(capType string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for typ, stop := range d.subs {
		if strings.EqualFold(typ, capType) {
			close(stop)
			delete(d.subs, typ)
			return
		}
	}
}

// ActiveSubscriptions returns the number of live sensor subscriptions.
// Used by tests to verify reference-counted teardown.
func (d *Driver) ActiveSubscriptions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

// emitLoop produces synthetic readings until stop is closed.
func (d *Driver) emitLoop(c capability.Capability, fn capability.EventFunc, stop chan struct{}) {
	ticker := time.NewTicker(d.sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			fn(capability.Event{
				Capability: c.Type,
				Payload:    capability.SensorPayload(c, d.nextValues(c.Type), 3, time.Now().UnixMilli()),
			})
		}
	}
}

// nextValues generates a deterministic three-axis reading.
func (d *Driver) nextValues(capType string) []float64 {
	d.mu.Lock()
	d.tick++
	t := float64(d.tick)
	d.mu.Unlock()

	phase := float64(len(capType)) // stable offset per capability
	return []float64{
		math.Sin(t/10 + phase),
		math.Cos(t/10 + phase),
		9.81 * math.Sin(t/100),
	}
}
