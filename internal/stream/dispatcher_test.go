package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/sensord/internal/capability"
)

// runDispatcher starts a dispatcher loop stopped at test cleanup.
func runDispatcher(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go d.Run(ctx)
}

// waitFrames polls until the connection has at least n frames or times out.
func waitFrames(t *testing.T, c *mockConn, n int) [][]byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if frames := c.frames(); len(frames) >= n {
			return frames
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("connection %s: timed out waiting for %d frames (got %d)", c.id, n, len(c.frames()))
	return nil
}

func TestDispatcher_DeliversToSubscribersOnly(t *testing.T) {
	reg := NewRegistry(newMockActivator())
	d := NewDispatcher(reg, nil)
	runDispatcher(t, d)

	subscriber := newMockConn("sub")
	bystander := newMockConn("other")
	reg.Attach(subscriber, Single(accel))
	reg.Attach(bystander, Single(gyro))

	d.Publish(capability.Event{
		Capability: accel,
		Payload:    map[string]any{"type": accel, "values": []float64{1, 2, 3}},
	})

	waitFrames(t, subscriber, 1)
	time.Sleep(20 * time.Millisecond)
	if got := len(bystander.frames()); got != 0 {
		t.Errorf("non-subscriber received %d frames, want 0", got)
	}
}

func TestDispatcher_IdenticalBytesForSameShape(t *testing.T) {
	reg := NewRegistry(newMockActivator())
	d := NewDispatcher(reg, nil)
	runDispatcher(t, d)

	c1 := newMockConn("c1")
	c2 := newMockConn("c2")
	reg.Attach(c1, Single(accel))
	reg.Attach(c2, Single(accel))

	d.Publish(capability.Event{
		Capability: accel,
		Payload:    map[string]any{"type": accel, "values": []float64{9.8}},
	})

	f1 := waitFrames(t, c1, 1)
	f2 := waitFrames(t, c2, 1)
	if !bytes.Equal(f1[0], f2[0]) {
		t.Errorf("same-shape subscribers got different bytes:\n%s\n%s", f1[0], f2[0])
	}
}

func TestDispatcher_TaggedShapeAddsType(t *testing.T) {
	reg := NewRegistry(newMockActivator())
	d := NewDispatcher(reg, nil)
	runDispatcher(t, d)

	list := newMockConn("list")
	reg.Attach(list, List([]string{accel, gyro}))

	// Payload deliberately missing "type": the dispatcher must inject it
	// for list-attached connections.
	d.Publish(capability.Event{
		Capability: accel,
		Payload:    map[string]any{"values": []float64{1}},
	})

	frames := waitFrames(t, list, 1)
	var decoded map[string]any
	if err := json.Unmarshal(frames[0], &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != accel {
		t.Errorf("tagged delivery type = %v, want %q", decoded["type"], accel)
	}
}

func TestDispatcher_ClosedConnDoesNotAbortBatch(t *testing.T) {
	reg := NewRegistry(newMockActivator())
	d := NewDispatcher(reg, nil)
	runDispatcher(t, d)

	dead := newMockConn("dead")
	alive := newMockConn("alive")
	reg.Attach(dead, Single(accel))
	reg.Attach(alive, Single(accel))
	dead.close()

	d.Publish(capability.Event{
		Capability: accel,
		Payload:    map[string]any{"type": accel, "values": []float64{1}},
	})

	waitFrames(t, alive, 1)
	if got := len(dead.frames()); got != 0 {
		t.Errorf("closed connection recorded %d frames, want 0", got)
	}
}

func TestDispatcher_BroadcastReachesAllAttachments(t *testing.T) {
	reg := NewRegistry(newMockActivator())
	d := NewDispatcher(reg, nil)
	runDispatcher(t, d)

	sensor := newMockConn("sensor")
	touch := newMockConn("touch")
	loc := newMockConn("loc")
	reg.Attach(sensor, Single(accel))
	reg.Attach(touch, Touch())
	reg.Attach(loc, Location())

	d.Broadcast(capability.Event{
		Capability: capability.TypeTouch,
		Payload:    capability.TouchPayload(capability.TouchEvent{Action: capability.ActionDown, X: 10, Y: 20}),
	})

	// Touch is an ambient signal: every open connection receives it,
	// whatever it subscribed to.
	for _, c := range []*mockConn{sensor, touch, loc} {
		frames := waitFrames(t, c, 1)
		var decoded map[string]any
		if err := json.Unmarshal(frames[0], &decoded); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if decoded["action"] != capability.ActionDown {
			t.Errorf("conn %s: action = %v, want %q", c.id, decoded["action"], capability.ActionDown)
		}
	}
}

func TestDispatcher_OrderingPerConnection(t *testing.T) {
	reg := NewRegistry(newMockActivator())
	d := NewDispatcher(reg, nil)
	runDispatcher(t, d)

	c := newMockConn("c")
	reg.Attach(c, Single(accel))

	const n = 50
	for i := 0; i < n; i++ {
		d.Publish(capability.Event{
			Capability: accel,
			Payload:    map[string]any{"type": accel, "seq": i},
		})
	}

	frames := waitFrames(t, c, n)
	for i, frame := range frames[:n] {
		var decoded struct {
			Seq int `json:"seq"`
		}
		if err := json.Unmarshal(frame, &decoded); err != nil {
			t.Fatalf("unmarshal frame %d: %v", i, err)
		}
		if decoded.Seq != i {
			t.Fatalf("frame %d has seq %d: events reordered", i, decoded.Seq)
		}
	}
}

// recordingSink captures egress publishes.
type recordingSink struct {
	mu       sync.Mutex
	payloads map[string][][]byte
}

func (s *recordingSink) Publish(capType string, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.payloads == nil {
		s.payloads = make(map[string][][]byte)
	}
	s.payloads[capType] = append(s.payloads[capType], payload)
}

func (s *recordingSink) count(capType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads[capType])
}

func TestDispatcher_SinkReceivesEvents(t *testing.T) {
	reg := NewRegistry(newMockActivator())
	sink := &recordingSink{}
	d := NewDispatcher(reg, nil, WithSink(sink))
	runDispatcher(t, d)

	c := newMockConn("c")
	reg.Attach(c, Single(accel))

	d.Publish(capability.Event{
		Capability: accel,
		Payload:    map[string]any{"type": accel, "values": []float64{1}},
	})

	waitFrames(t, c, 1)
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && sink.count(accel) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if sink.count(accel) != 1 {
		t.Errorf("sink received %d events, want 1", sink.count(accel))
	}
}

func TestDispatcher_DetachRaceNeverWritesClosedConn(t *testing.T) {
	reg := NewRegistry(newMockActivator())
	d := NewDispatcher(reg, nil)
	runDispatcher(t, d)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		c := newMockConn("racer")
		reg.Attach(c, Single(accel))

		wg.Add(2)
		go func() {
			defer wg.Done()
			d.Publish(capability.Event{
				Capability: accel,
				Payload:    map[string]any{"type": accel},
			})
		}()
		go func(c *mockConn) {
			defer wg.Done()
			reg.Detach(c)
			c.close()
		}(c)
		wg.Wait()
	}
	// Success criterion is the race detector plus mockConn's closed check:
	// Send after close returns false and records nothing.
}
