package stream

import (
	"context"
	"encoding/json"

	"github.com/nerrad567/sensord/internal/capability"
)

// dispatchBufferSize is the event queue depth between producer callbacks
// and the dispatch goroutine.
const dispatchBufferSize = 256

// Sink receives a copy of every dispatched event after serialization.
// Used by the optional MQTT egress bridge. Sinks must not block.
type Sink interface {
	Publish(capType string, payload []byte)
}

// Metrics receives dispatch statistics. Used by the optional InfluxDB
// telemetry writer. Implementations must not block.
type Metrics interface {
	EventDispatched(capType string, recipients int)
}

// item is one queued unit of dispatch work.
type item struct {
	event capability.Event
	// broadcast delivers to every open connection instead of the
	// capability's subscriber set. Touch events use this path.
	broadcast bool
}

// Dispatcher fans events out to their subscriber connections.
//
// One goroutine consumes the queue, making it the single serialization
// point for all producer callbacks: sensor events, location fixes, scan
// completions and touch events are dispatched strictly in arrival order.
type Dispatcher struct {
	registry *Registry
	logger   Logger
	sinks    []Sink
	metrics  Metrics
	queue    chan item
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithSink adds an egress sink receiving every dispatched event.
func WithSink(s Sink) DispatcherOption {
	return func(d *Dispatcher) { d.sinks = append(d.sinks, s) }
}

// WithMetrics sets the dispatch statistics receiver.
func WithMetrics(m Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher creates a Dispatcher reading subscriber sets from the
// registry.
func NewDispatcher(registry *Registry, logger Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = noopLogger{}
	}
	d := &Dispatcher{
		registry: registry,
		logger:   logger,
		queue:    make(chan item, dispatchBufferSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run consumes the dispatch queue until the context is cancelled.
// It blocks; start it on its own goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case it := <-d.queue:
			d.dispatch(it)
		}
	}
}

// Publish queues an event for delivery to the capability's subscribers.
// It never blocks the producing thread: if the queue is full the event is
// dropped and logged.
func (d *Dispatcher) Publish(ev capability.Event) {
	select {
	case d.queue <- item{event: ev}:
	default:
		d.logger.Warn("dispatch queue full, event dropped", "capability", ev.Capability)
	}
}

// Broadcast queues an event for delivery to every open connection,
// regardless of attachment. Touch events use this path.
func (d *Dispatcher) Broadcast(ev capability.Event) {
	select {
	case d.queue <- item{event: ev, broadcast: true}:
	default:
		d.logger.Warn("dispatch queue full, broadcast dropped", "capability", ev.Capability)
	}
}

// dispatch serializes and delivers one event.
//
// Payloads are serialized at most twice: once bare (as produced) and once
// with the "type" field guaranteed, for list-attached connections. When the
// producer already tagged the payload the two shapes share one buffer.
func (d *Dispatcher) dispatch(it item) {
	ev := it.event

	var subs []Subscriber
	if it.broadcast {
		conns := d.registry.Connections()
		subs = make([]Subscriber, 0, len(conns))
		for _, c := range conns {
			subs = append(subs, Subscriber{Conn: c})
		}
	} else {
		subs = d.registry.ConnectionsFor(ev.Capability)
	}
	if len(subs) == 0 && len(d.sinks) == 0 {
		return
	}

	bare, err := json.Marshal(ev.Payload)
	if err != nil {
		d.logger.Error("failed to marshal event", "capability", ev.Capability, "error", err)
		return
	}

	// Lazily built on the first tagged subscriber.
	var tagged []byte

	delivered := 0
	for _, sub := range subs {
		data := bare
		if sub.Tagged {
			if tagged == nil {
				tagged = d.taggedBytes(ev, bare)
			}
			data = tagged
		}
		if sub.Conn.Send(data) {
			delivered++
		} else {
			// Connection closed or buffer full mid-batch. Skip it and
			// keep delivering to the rest.
			d.logger.Debug("delivery dropped",
				"capability", ev.Capability, "conn", sub.Conn.ID())
		}
	}

	for _, sink := range d.sinks {
		sink.Publish(ev.Capability, bare)
	}
	if d.metrics != nil {
		d.metrics.EventDispatched(ev.Capability, delivered)
	}
}

// taggedBytes returns the payload with the "type" field guaranteed.
// Reuses the bare buffer when the producer already included it.
func (d *Dispatcher) taggedBytes(ev capability.Event, bare []byte) []byte {
	if _, ok := ev.Payload["type"]; ok {
		return bare
	}

	p := make(map[string]any, len(ev.Payload)+1)
	for k, v := range ev.Payload {
		p[k] = v
	}
	p["type"] = ev.Capability

	data, err := json.Marshal(p)
	if err != nil {
		d.logger.Error("failed to marshal tagged event", "capability", ev.Capability, "error", err)
		return bare
	}
	return data
}
