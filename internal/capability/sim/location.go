package sim

import (
	"math"
	"time"

	"github.com/nerrad567/sensord/internal/capability"
)

// locationPushInterval is the simulated platform push period. Deliberately
// slow so the streamer's re-push poll is observable.
const locationPushInterval = 3 * time.Second

// locationProvider adapts the Driver to capability.LocationProvider.
// Split into its own type because Source and LocationProvider both name a
// Subscribe method.
type locationProvider struct {
	d *Driver
}

// Location returns the driver's location provider.
func (d *Driver) Location() capability.LocationProvider {
	return &locationProvider{d: d}
}

// Available reports whether the simulated location service can be used.
func (p *locationProvider) Available() error {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	return p.d.locErr
}

// Subscribe starts push delivery of simulated fixes on a slow drift walk.
func (p *locationProvider) Subscribe(fn capability.LocationFunc) error {
	d := p.d

	d.mu.Lock()
	if d.locErr != nil {
		err := d.locErr
		d.mu.Unlock()
		return err
	}
	if d.locStop != nil {
		d.mu.Unlock()
		return capability.ErrAlreadySubscribed
	}
	stop := make(chan struct{})
	d.locStop = stop
	d.mu.Unlock()

	go d.locationLoop(fn, stop)
	return nil
}

// Unsubscribe stops push delivery.
func (p *locationProvider) Unsubscribe() {
	d := p.d

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.locStop != nil {
		close(d.locStop)
		d.locStop = nil
	}
}

// LastKnown returns the most recent simulated fix.
func (p *locationProvider) LastKnown() (capability.Fix, bool) {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	return p.d.lastFix, p.d.hasFix
}

// locationLoop drifts the fix and pushes it until stop is closed.
func (d *Driver) locationLoop(fn capability.LocationFunc, stop chan struct{}) {
	ticker := time.NewTicker(locationPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			fn(d.advanceFix())
		}
	}
}

// advanceFix moves the fix a few metres and records it as last known.
func (d *Driver) advanceFix() capability.Fix {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.tick++
	t := float64(d.tick)
	d.lastFix.Latitude += 0.00001 * math.Sin(t/7)
	d.lastFix.Longitude += 0.00001 * math.Cos(t/11)
	d.lastFix.Speed = float32(0.5 + 0.2*math.Sin(t/5))
	d.lastFix.Bearing = float32(math.Mod(t*3, 360))
	d.lastFix.Time = time.Now().UnixMilli()
	d.hasFix = true
	return d.lastFix
}

// SetLocationError makes Available() fail with err. Pass nil to restore.
func (d *Driver) SetLocationError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.locErr = err
}

// SetLastKnown seeds the last known fix. Used by tests.
func (d *Driver) SetLastKnown(f capability.Fix) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastFix = f
	d.hasFix = true
}
