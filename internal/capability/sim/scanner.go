package sim

import (
	"time"

	"github.com/nerrad567/sensord/internal/capability"
)

// StartScan simulates one discovery cycle: it returns immediately and
// delivers the scripted result set for kind after the configured delay.
func (d *Driver) StartScan(kind capability.ScanKind, done capability.ScanFunc) error {
	d.mu.Lock()
	if d.radioOff {
		d.mu.Unlock()
		return capability.ErrRadioDisabled
	}
	results := make([]capability.ScanResult, len(d.scanResults[kind]))
	copy(results, d.scanResults[kind])
	delay := d.scanDelay
	d.mu.Unlock()

	go func() {
		time.Sleep(delay)
		done(kind, results, nil)
	}()
	return nil
}

// SetRadioEnabled toggles the simulated radio. While disabled, StartScan
// fails with capability.ErrRadioDisabled.
func (d *Driver) SetRadioEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.radioOff = !enabled
}

// SetScanResults replaces the scripted result set for a scan kind.
func (d *Driver) SetScanResults(kind capability.ScanKind, results []capability.ScanResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scanResults[kind] = results
}
