package stream

import (
	"sync"
	"testing"

	"github.com/nerrad567/sensord/internal/capability"
)

// mockConn is a test implementation of Conn recording sent frames.
type mockConn struct {
	id     string
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func newMockConn(id string) *mockConn {
	return &mockConn{id: id}
}

func (c *mockConn) ID() string         { return c.id }
func (c *mockConn) RemoteAddr() string { return "test:" + c.id }

func (c *mockConn) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.sent = append(c.sent, buf)
	return true
}

func (c *mockConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *mockConn) frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

// mockActivator records activation calls for verification.
type mockActivator struct {
	mu          sync.Mutex
	activated   map[string]int
	deactivated map[string]int
	activateErr error
}

func newMockActivator() *mockActivator {
	return &mockActivator{
		activated:   make(map[string]int),
		deactivated: make(map[string]int),
	}
}

func (a *mockActivator) Activate(capType string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.activated[capType]++
	return a.activateErr
}

func (a *mockActivator) Deactivate(capType string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deactivated[capType]++
}

func (a *mockActivator) counts(capType string) (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activated[capType], a.deactivated[capType]
}

const accel = "android.sensor.accelerometer"
const gyro = "android.sensor.gyroscope"

func TestRegistry_ActivationOnFirstReference(t *testing.T) {
	act := newMockActivator()
	reg := NewRegistry(act)

	c1 := newMockConn("c1")
	c2 := newMockConn("c2")

	reg.Attach(c1, Single(accel))
	reg.Attach(c2, Single(accel))

	activations, _ := act.counts(accel)
	if activations != 1 {
		t.Errorf("Activate called %d times, want exactly 1 for the 0→1 transition", activations)
	}
	if got := reg.RefCount(accel); got != 2 {
		t.Errorf("RefCount = %d, want 2", got)
	}
}

func TestRegistry_DeactivationOnLastReference(t *testing.T) {
	act := newMockActivator()
	reg := NewRegistry(act)

	c1 := newMockConn("c1")
	c2 := newMockConn("c2")
	reg.Attach(c1, Single(accel))
	reg.Attach(c2, Single(accel))

	reg.Detach(c1)
	if _, deactivations := act.counts(accel); deactivations != 0 {
		t.Error("Deactivate fired while a subscriber remains")
	}

	reg.Detach(c2)
	if _, deactivations := act.counts(accel); deactivations != 1 {
		t.Errorf("Deactivate called %d times, want exactly 1 for the 1→0 transition", deactivations)
	}
	if got := reg.RefCount(accel); got != 0 {
		t.Errorf("RefCount = %d, want 0", got)
	}
}

func TestRegistry_DetachIdempotent(t *testing.T) {
	act := newMockActivator()
	reg := NewRegistry(act)

	c1 := newMockConn("c1")
	reg.Attach(c1, Single(accel))

	reg.Detach(c1)
	reg.Detach(c1) // duplicate close notification

	if _, deactivations := act.counts(accel); deactivations != 1 {
		t.Errorf("Deactivate called %d times after double detach, want 1", deactivations)
	}
	if got := reg.RefCount(accel); got != 0 {
		t.Errorf("RefCount went negative-ish: %d", got)
	}
}

func TestRegistry_ListCountsEachCapabilityOnce(t *testing.T) {
	act := newMockActivator()
	reg := NewRegistry(act)

	c1 := newMockConn("c1")
	reg.Attach(c1, List([]string{accel, gyro, capability.TypeLocation}))

	for _, capType := range []string{accel, gyro, capability.TypeLocation} {
		if got := reg.RefCount(capType); got != 1 {
			t.Errorf("RefCount(%s) = %d, want 1", capType, got)
		}
	}

	reg.Detach(c1)

	for _, capType := range []string{accel, gyro, capability.TypeLocation} {
		if got := reg.RefCount(capType); got != 0 {
			t.Errorf("RefCount(%s) = %d after detach, want 0", capType, got)
		}
		if _, deactivations := act.counts(capType); deactivations != 1 {
			t.Errorf("Deactivate(%s) called %d times, want 1", capType, deactivations)
		}
	}
}

func TestRegistry_ConnectionsForShapes(t *testing.T) {
	reg := NewRegistry(newMockActivator())

	single := newMockConn("single")
	list := newMockConn("list")
	other := newMockConn("other")

	reg.Attach(single, Single(accel))
	reg.Attach(list, List([]string{accel, gyro}))
	reg.Attach(other, Single(gyro))

	subs := reg.ConnectionsFor(accel)
	if len(subs) != 2 {
		t.Fatalf("ConnectionsFor(%s) returned %d subscribers, want 2", accel, len(subs))
	}
	for _, sub := range subs {
		switch sub.Conn.ID() {
		case "single":
			if sub.Tagged {
				t.Error("single attachment should not be tagged")
			}
		case "list":
			if !sub.Tagged {
				t.Error("list attachment should be tagged")
			}
		default:
			t.Errorf("unexpected subscriber %s", sub.Conn.ID())
		}
	}
}

func TestRegistry_DetachRemovesFromLookups(t *testing.T) {
	reg := NewRegistry(newMockActivator())

	c1 := newMockConn("c1")
	reg.Attach(c1, Single(accel))
	reg.Detach(c1)

	if subs := reg.ConnectionsFor(accel); len(subs) != 0 {
		t.Errorf("detached connection still visible in ConnectionsFor: %d subscribers", len(subs))
	}
	if conns := reg.Connections(); len(conns) != 0 {
		t.Errorf("detached connection still visible in Connections: %d", len(conns))
	}
}

func TestRegistry_TouchDemandsNothing(t *testing.T) {
	act := newMockActivator()
	reg := NewRegistry(act)

	c1 := newMockConn("c1")
	reg.Attach(c1, Touch())

	act.mu.Lock()
	total := len(act.activated)
	act.mu.Unlock()
	if total != 0 {
		t.Errorf("touch attachment triggered %d activations, want 0", total)
	}
	if got := reg.ConnectionCount(); got != 1 {
		t.Errorf("ConnectionCount = %d, want 1 (touch still receives broadcasts)", got)
	}
}

func TestRegistry_ActivationFailureStaysCounted(t *testing.T) {
	act := newMockActivator()
	act.activateErr = capability.ErrRadioDisabled
	reg := NewRegistry(act)

	c1 := newMockConn("c1")
	reg.Attach(c1, Scan(capability.TypeWifiScan))

	if got := reg.RefCount(capability.TypeWifiScan); got != 1 {
		t.Errorf("RefCount = %d after failed activation, want 1", got)
	}

	// Teardown must not deactivate a producer that never activated.
	reg.Detach(c1)
	if _, deactivations := act.counts(capability.TypeWifiScan); deactivations != 0 {
		t.Errorf("Deactivate called %d times for never-activated capability, want 0", deactivations)
	}
}

func TestRegistry_AttachImmutable(t *testing.T) {
	reg := NewRegistry(newMockActivator())

	c1 := newMockConn("c1")
	reg.Attach(c1, Single(accel))
	reg.Attach(c1, Single(gyro)) // must be ignored

	if got := reg.RefCount(gyro); got != 0 {
		t.Errorf("second attach took effect: RefCount(gyro) = %d", got)
	}
	att, ok := reg.AttachmentOf(c1)
	if !ok || att.Capability != accel {
		t.Errorf("attachment changed after second attach: %+v", att)
	}
}

func TestRegistry_ConcurrentAttachDetach(t *testing.T) {
	act := newMockActivator()
	reg := NewRegistry(act)

	const workers = 16
	const rounds = 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				c := newMockConn("w")
				reg.Attach(c, Single(accel))
				reg.ConnectionsFor(accel)
				reg.Detach(c)
			}
		}(w)
	}
	wg.Wait()

	if got := reg.RefCount(accel); got != 0 {
		t.Errorf("RefCount = %d after balanced attach/detach, want 0", got)
	}
	activations, deactivations := act.counts(accel)
	if activations != deactivations {
		t.Errorf("activations (%d) != deactivations (%d): leaked hardware subscription", activations, deactivations)
	}
}
