package capability

// EventFunc receives normalized events from a capability driver.
// Callbacks run on the driver's own thread and must not block.
type EventFunc func(Event)

// Source enumerates hardware sensor capabilities and produces their events.
//
// Implementations must support exactly one active subscription per
// capability type at a time; the stream registry guarantees it never
// requests more.
type Source interface {
	// List returns every available capability, hardware and synthetic.
	List() []Capability

	// Find looks up a capability by type, case-insensitively.
	Find(capType string) (Capability, bool)

	// Subscribe starts event production for a hardware capability.
	Subscribe(capType string, fn EventFunc) error

	// Unsubscribe stops event production for a hardware capability.
	// Unsubscribing a capability with no active subscription is a no-op.
	Unsubscribe(capType string)
}

// ScanFunc receives the result set of a completed scan cycle.
type ScanFunc func(kind ScanKind, results []ScanResult, err error)

// Scanner runs one-off discovery cycles for the physical scan kinds.
//
// StartScan returns immediately; done is invoked on the scanner's callback
// thread when the cycle completes. StartScan returns ErrRadioDisabled or
// ErrPermissionDenied when the cycle cannot begin; the coordinator treats
// both as transient and retries on its next tick.
type Scanner interface {
	StartScan(kind ScanKind, done ScanFunc) error
}

// LocationFunc receives location fixes pushed by the platform.
type LocationFunc func(Fix)

// LocationProvider produces device location fixes.
type LocationProvider interface {
	// Available reports whether location can be served right now.
	// A non-nil error carries the human-readable permission/service reason.
	Available() error

	// Subscribe starts push delivery of fixes.
	Subscribe(fn LocationFunc) error

	// Unsubscribe stops push delivery.
	Unsubscribe()

	// LastKnown returns the most recent fix, if any exists yet.
	LastKnown() (Fix, bool)
}

// TouchFunc receives screen-touch events.
type TouchFunc func(TouchEvent)

// TouchProvider produces screen-touch events.
type TouchProvider interface {
	Subscribe(fn TouchFunc)
	Unsubscribe()
}
