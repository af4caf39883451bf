// Package stream implements the subscription and dispatch engine at the
// heart of sensord.
//
// The Registry holds the reference-counted mapping from capability type to
// subscriber connections. Reference-count transitions (0→1, 1→0) drive an
// Activator, which starts and stops the underlying producers: hardware
// sensor subscriptions, the location streamer, and periodic scan cycles.
//
// The Dispatcher is the single serialization point for all producer
// callbacks. Events are queued onto one channel and fanned out by one
// goroutine, which preserves per-capability, per-connection ordering and
// keeps producer threads from ever running dispatch logic concurrently.
//
// # Concurrency
//
// Registry.Attach, Registry.Detach and Registry.ConnectionsFor share one
// mutex, so a detach either fully precedes or fully follows any lookup.
// A connection that has completed Detach never appears in a later lookup;
// writes racing a close are absorbed by the connection's own send path.
package stream
