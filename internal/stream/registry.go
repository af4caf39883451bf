package stream

import "sync"

// Activator starts and stops event production for a capability type.
//
// The registry calls Activate exactly once per 0→1 reference transition and
// Deactivate exactly once per 1→0 transition. Implementations route to the
// hardware source, the location streamer or the scan coordinator by
// capability class. Calls are made while the registry lock is held, so
// implementations must not call back into the registry synchronously;
// production starts on the collaborator's own goroutines.
type Activator interface {
	Activate(capType string) error
	Deactivate(capType string)
}

// entry is the per-capability listener state.
type entry struct {
	// refs is the number of live connections demanding this capability.
	refs int
	// active reports whether the producer-side subscription is in place.
	// Invariant: active implies refs > 0. Activation failures leave an
	// entry counted but inactive; the capability stays silent until its
	// demand cycles through zero again.
	active bool
}

// Registry is the reference-counted mapping from capability type to
// subscriber connections.
//
// All state is guarded by one mutex so that attach, detach and lookup are
// mutually atomic: a detach either fully precedes or fully follows any
// in-flight lookup.
type Registry struct {
	activator Activator
	logger    Logger

	mu      sync.Mutex
	entries map[string]*entry
	atts    map[Conn]Attachment
	// index is the capability→connections index maintained incrementally
	// by Attach/Detach. It keeps ConnectionsFor O(matching connections).
	index map[string]map[Conn]struct{}
	// conns tracks every attached connection, for the touch broadcast and
	// shutdown.
	conns map[Conn]struct{}
}

// Subscriber pairs a connection with the delivery shape it expects.
type Subscriber struct {
	Conn Conn
	// Tagged subscribers receive payloads with a guaranteed "type" field.
	Tagged bool
}

// NewRegistry creates a Registry driving the given activator.
func NewRegistry(activator Activator) *Registry {
	return &Registry{
		activator: activator,
		logger:    noopLogger{},
		entries:   make(map[string]*entry),
		atts:      make(map[Conn]Attachment),
		index:     make(map[string]map[Conn]struct{}),
		conns:     make(map[Conn]struct{}),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetActivator sets the activator after construction. The registry, the
// dispatcher and the producers form a construction cycle (producers
// publish through the dispatcher, which reads the registry, which drives
// the producers), so the activator is wired last, before any connection
// attaches.
func (r *Registry) SetActivator(a Activator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activator = a
}

// Attach stores the connection's attachment and increments the reference
// count of every capability it demands. A 0→1 transition activates the
// capability's producer. Attaching an already-attached connection is a
// no-op: attachments are immutable for the life of a connection.
func (r *Registry) Attach(conn Conn, att Attachment) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.atts[conn]; exists {
		r.logger.Warn("attach ignored for already-attached connection", "conn", conn.ID())
		return
	}

	r.atts[conn] = att
	r.conns[conn] = struct{}{}

	for _, capType := range att.DemandedTypes() {
		e, ok := r.entries[capType]
		if !ok {
			e = &entry{}
			r.entries[capType] = e
		}
		e.refs++

		set, ok := r.index[capType]
		if !ok {
			set = make(map[Conn]struct{})
			r.index[capType] = set
		}
		set[conn] = struct{}{}

		if e.refs == 1 && r.activator != nil {
			if err := r.activator.Activate(capType); err != nil {
				r.logger.Warn("capability activation failed",
					"capability", capType, "error", err)
			} else {
				e.active = true
			}
		}
	}

	r.logger.Debug("connection attached",
		"conn", conn.ID(),
		"remote", conn.RemoteAddr(),
		"kind", att.Kind.String(),
		"connections", len(r.conns),
	)
}

// Detach reverses Attach: it decrements every demanded capability's
// reference count and deactivates producers whose count reaches zero.
// Detach is idempotent — a second call for the same connection is a no-op,
// which guards against duplicate close notifications.
func (r *Registry) Detach(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	att, ok := r.atts[conn]
	if !ok {
		return
	}
	delete(r.atts, conn)
	delete(r.conns, conn)

	for _, capType := range att.DemandedTypes() {
		if set, ok := r.index[capType]; ok {
			delete(set, conn)
			if len(set) == 0 {
				delete(r.index, capType)
			}
		}

		e, ok := r.entries[capType]
		if !ok {
			continue
		}
		e.refs--
		if e.refs <= 0 {
			wasActive := e.active
			delete(r.entries, capType)
			if wasActive && r.activator != nil {
				r.activator.Deactivate(capType)
			}
		}
	}

	r.logger.Debug("connection detached",
		"conn", conn.ID(),
		"connections", len(r.conns),
	)
}

// ConnectionsFor returns every open connection whose attachment names the
// capability, directly or as a list member, with its delivery shape.
// This is the dispatch hot path.
func (r *Registry) ConnectionsFor(capType string) []Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.index[capType]
	if len(set) == 0 {
		return nil
	}

	subs := make([]Subscriber, 0, len(set))
	for conn := range set {
		subs = append(subs, Subscriber{
			Conn:   conn,
			Tagged: r.atts[conn].Tagged(),
		})
	}
	return subs
}

// Connections returns a snapshot of every attached connection.
// Used by the touch broadcast and by server shutdown.
func (r *Registry) Connections() []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := make([]Conn, 0, len(r.conns))
	for conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}

// ConnectionCount returns the number of attached connections.
func (r *Registry) ConnectionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// RefCount returns the live reference count for a capability type.
// Used by telemetry and tests.
func (r *Registry) RefCount(capType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[capType]; ok {
		return e.refs
	}
	return 0
}

// AttachmentOf returns the stored attachment for a connection.
func (r *Registry) AttachmentOf(conn Conn) (Attachment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	att, ok := r.atts[conn]
	return att, ok
}
