package location

import (
	"sync"
	"time"

	"github.com/nerrad567/sensord/internal/capability"
)

// Logger is the minimal logging interface used by the streamer.
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

// Publisher receives normalized location events for dispatch.
type Publisher interface {
	Publish(ev capability.Event)
}

// Streamer bridges the platform location provider into the event stream.
//
// While at least one connection demands location it runs two producers:
// the provider's own push updates, forwarded as fresh fixes, and a poll
// loop re-pushing the last known fix at a fixed cadence so subscribers
// keep receiving position even when the platform goes quiet.
type Streamer struct {
	provider  capability.LocationProvider
	publisher Publisher
	logger    Logger
	poll      time.Duration

	mu     sync.Mutex
	active bool
	stop   chan struct{}
}

// Option configures a Streamer.
type Option func(*Streamer)

// WithLogger sets the streamer's logger.
func WithLogger(l Logger) Option {
	return func(s *Streamer) { s.logger = l }
}

// New creates a Streamer re-pushing the last known fix every poll interval
// while active.
func New(provider capability.LocationProvider, publisher Publisher, poll time.Duration, opts ...Option) *Streamer {
	s := &Streamer{
		provider:  provider,
		publisher: publisher,
		logger:    noopLogger{},
		poll:      poll,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether location can be served right now. Checked by
// the router before accepting a location attachment.
func (s *Streamer) Available() error {
	return s.provider.Available()
}

// Activate subscribes to platform fixes and starts the poll loop.
// Called by the registry on the 0→1 reference transition.
func (s *Streamer) Activate(string) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = true
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	if err := s.provider.Subscribe(s.onFix); err != nil {
		s.mu.Lock()
		s.active = false
		s.stop = nil
		s.mu.Unlock()
		return err
	}

	s.logger.Info("location streaming activated", "poll", s.poll)

	go func() {
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.pushLastKnown()
			}
		}
	}()
	return nil
}

// Deactivate stops the poll loop and unsubscribes from platform fixes.
// Called by the registry on the 1→0 reference transition.
func (s *Streamer) Deactivate(string) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	close(s.stop)
	s.stop = nil
	s.mu.Unlock()

	s.provider.Unsubscribe()
	s.logger.Info("location streaming deactivated")
}

// onFix forwards a fresh platform fix into the stream.
func (s *Streamer) onFix(f capability.Fix) {
	s.publisher.Publish(capability.Event{
		Capability: capability.TypeLocation,
		Payload:    capability.LocationPayload(f, false),
	})
}

// pushLastKnown re-emits the most recent fix, marked lastKnownLocation.
// Silent when no fix exists yet.
func (s *Streamer) pushLastKnown() {
	f, ok := s.provider.LastKnown()
	if !ok {
		return
	}
	s.publisher.Publish(capability.Event{
		Capability: capability.TypeLocation,
		Payload:    capability.LocationPayload(f, true),
	})
}

// LastKnownPayload returns the wire payload of the most recent fix for a
// unicast reply, or false when no fix exists yet.
func (s *Streamer) LastKnownPayload() (map[string]any, bool) {
	f, ok := s.provider.LastKnown()
	if !ok {
		return nil, false
	}
	return capability.LocationPayload(f, true), true
}

// Active reports whether streaming is currently running.
func (s *Streamer) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
