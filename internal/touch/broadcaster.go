package touch

import (
	"sync"

	"github.com/nerrad567/sensord/internal/capability"
)

// Logger is the minimal logging interface used by the broadcaster.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Broadcaster receives broadcast-path events for every open connection.
type Broadcaster interface {
	Broadcast(ev capability.Event)
}

// Relay forwards screen-touch events to every open connection.
//
// Touch is an ambient signal: delivery ignores attachments entirely, so a
// connection subscribed to the accelerometer still receives touch frames.
// The relay runs for the whole server lifetime rather than on demand.
type Relay struct {
	provider    capability.TouchProvider
	broadcaster Broadcaster
	logger      Logger

	mu      sync.Mutex
	started bool
}

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets the relay's logger.
func WithLogger(l Logger) Option {
	return func(r *Relay) { r.logger = l }
}

// New creates a Relay forwarding provider events through the broadcaster.
func New(provider capability.TouchProvider, broadcaster Broadcaster, opts ...Option) *Relay {
	r := &Relay{
		provider:    provider,
		broadcaster: broadcaster,
		logger:      noopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start subscribes to touch events. Idempotent.
func (r *Relay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.provider.Subscribe(r.onTouch)
	r.logger.Info("touch relay started")
}

// Stop unsubscribes from touch events. Idempotent.
func (r *Relay) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return
	}
	r.started = false
	r.provider.Unsubscribe()
	r.logger.Info("touch relay stopped")
}

func (r *Relay) onTouch(e capability.TouchEvent) {
	r.broadcaster.Broadcast(capability.Event{
		Capability: capability.TypeTouch,
		Payload:    capability.TouchPayload(e),
	})
}
