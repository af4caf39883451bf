package sim

import (
	"time"

	"github.com/nerrad567/sensord/internal/capability"
)

// touchProvider adapts the Driver to capability.TouchProvider.
type touchProvider struct {
	d *Driver
}

// Touch returns the driver's touch provider.
func (d *Driver) Touch() capability.TouchProvider {
	return &touchProvider{d: d}
}

// Subscribe registers the touch callback. The sim driver produces no
// spontaneous touches; events arrive via InjectTouch.
func (p *touchProvider) Subscribe(fn capability.TouchFunc) {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	p.d.touchFn = fn
}

// Unsubscribe removes the touch callback.
func (p *touchProvider) Unsubscribe() {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()
	p.d.touchFn = nil
}

// InjectTouch delivers a synthetic touch event to the subscribed callback.
// Used by tests and the development shell.
func (d *Driver) InjectTouch(action string, x, y float32) {
	d.mu.Lock()
	fn := d.touchFn
	d.mu.Unlock()

	if fn == nil {
		return
	}
	fn(capability.TouchEvent{
		Action: action,
		X:      x,
		Y:      y,
		Time:   time.Now().UnixMilli(),
	})
}
