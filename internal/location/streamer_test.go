package location

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/sensord/internal/capability"
)

// mockProvider is a hand-driven LocationProvider.
type mockProvider struct {
	mu           sync.Mutex
	fn           capability.LocationFunc
	last         capability.Fix
	hasLast      bool
	availableErr error
	subscribeErr error
	unsubscribed int
}

func (p *mockProvider) Available() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.availableErr
}

func (p *mockProvider) Subscribe(fn capability.LocationFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subscribeErr != nil {
		return p.subscribeErr
	}
	p.fn = fn
	return nil
}

func (p *mockProvider) Unsubscribe() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fn = nil
	p.unsubscribed++
}

func (p *mockProvider) LastKnown() (capability.Fix, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.hasLast
}

// push simulates a platform fix update.
func (p *mockProvider) push(t *testing.T, f capability.Fix) {
	t.Helper()
	p.mu.Lock()
	fn := p.fn
	p.last = f
	p.hasLast = true
	p.mu.Unlock()
	if fn == nil {
		t.Fatal("push with no active subscription")
	}
	fn(f)
}

// mockPublisher records published events.
type mockPublisher struct {
	mu     sync.Mutex
	events []capability.Event
}

func (p *mockPublisher) Publish(ev capability.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *mockPublisher) snapshot() []capability.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]capability.Event, len(p.events))
	copy(out, p.events)
	return out
}

func waitEvents(t *testing.T, p *mockPublisher, n int) []capability.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if events := p.snapshot(); len(events) >= n {
			return events
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events (got %d)", n, len(p.snapshot()))
	return nil
}

func TestStreamer_ForwardsFreshFixes(t *testing.T) {
	provider := &mockProvider{}
	pub := &mockPublisher{}
	s := New(provider, pub, time.Hour)

	if err := s.Activate(capability.TypeLocation); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	defer s.Deactivate(capability.TypeLocation)

	provider.push(t, capability.Fix{Latitude: 51.5, Longitude: -0.12, Time: 1000})

	events := waitEvents(t, pub, 1)
	if events[0].Capability != capability.TypeLocation {
		t.Errorf("capability = %s, want %s", events[0].Capability, capability.TypeLocation)
	}
	if events[0].Payload["lastKnownLocation"] != false {
		t.Error("fresh fix marked as lastKnownLocation")
	}
	if events[0].Payload["latitude"] != 51.5 {
		t.Errorf("latitude = %v, want 51.5", events[0].Payload["latitude"])
	}
}

func TestStreamer_PollRepushesLastKnown(t *testing.T) {
	provider := &mockProvider{
		last:    capability.Fix{Latitude: 48.85, Time: 2000},
		hasLast: true,
	}
	pub := &mockPublisher{}
	s := New(provider, pub, 10*time.Millisecond)

	if err := s.Activate(capability.TypeLocation); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	defer s.Deactivate(capability.TypeLocation)

	events := waitEvents(t, pub, 2)
	for _, ev := range events[:2] {
		if ev.Payload["lastKnownLocation"] != true {
			t.Error("poll re-push not marked lastKnownLocation")
		}
	}
}

func TestStreamer_PollSilentWithoutFix(t *testing.T) {
	provider := &mockProvider{}
	pub := &mockPublisher{}
	s := New(provider, pub, 5*time.Millisecond)

	if err := s.Activate(capability.TypeLocation); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	defer s.Deactivate(capability.TypeLocation)

	time.Sleep(40 * time.Millisecond)
	if got := len(pub.snapshot()); got != 0 {
		t.Errorf("poll emitted %d events with no fix available, want 0", got)
	}
}

func TestStreamer_DeactivateStopsProducers(t *testing.T) {
	provider := &mockProvider{
		last:    capability.Fix{Latitude: 1},
		hasLast: true,
	}
	pub := &mockPublisher{}
	s := New(provider, pub, 5*time.Millisecond)

	s.Activate(capability.TypeLocation)
	waitEvents(t, pub, 1)
	s.Deactivate(capability.TypeLocation)

	provider.mu.Lock()
	unsubs := provider.unsubscribed
	provider.mu.Unlock()
	if unsubs != 1 {
		t.Errorf("provider unsubscribed %d times, want 1", unsubs)
	}

	before := len(pub.snapshot())
	time.Sleep(30 * time.Millisecond)
	if after := len(pub.snapshot()); after != before {
		t.Errorf("poll still emitting after deactivation: %d -> %d", before, after)
	}
	if s.Active() {
		t.Error("streamer reports active after deactivation")
	}
}

func TestStreamer_ActivateIdempotent(t *testing.T) {
	provider := &mockProvider{}
	pub := &mockPublisher{}
	s := New(provider, pub, time.Hour)

	s.Activate(capability.TypeLocation)
	s.Activate(capability.TypeLocation)
	defer s.Deactivate(capability.TypeLocation)

	if !s.Active() {
		t.Error("streamer not active")
	}
	// Double deactivate must also be safe.
	s.Deactivate(capability.TypeLocation)
	s.Deactivate(capability.TypeLocation)
}

func TestStreamer_SubscribeFailurePropagates(t *testing.T) {
	wantErr := errors.New("location: permission denied")
	provider := &mockProvider{subscribeErr: wantErr}
	s := New(provider, &mockPublisher{}, time.Hour)

	if err := s.Activate(capability.TypeLocation); !errors.Is(err, wantErr) {
		t.Errorf("Activate error = %v, want %v", err, wantErr)
	}
	if s.Active() {
		t.Error("streamer active after failed subscribe")
	}
}

func TestStreamer_LastKnownPayload(t *testing.T) {
	provider := &mockProvider{}
	s := New(provider, &mockPublisher{}, time.Hour)

	if _, ok := s.LastKnownPayload(); ok {
		t.Error("LastKnownPayload reported a fix before any exists")
	}

	provider.mu.Lock()
	provider.last = capability.Fix{Latitude: 35.68, Longitude: 139.69, Time: 3000}
	provider.hasLast = true
	provider.mu.Unlock()

	payload, ok := s.LastKnownPayload()
	if !ok {
		t.Fatal("LastKnownPayload reported no fix")
	}
	if payload["lastKnownLocation"] != true {
		t.Error("unicast reply not marked lastKnownLocation")
	}
	if payload["latitude"] != 35.68 {
		t.Errorf("latitude = %v, want 35.68", payload["latitude"])
	}
}
