// Package touch relays screen-touch events into the connection stream.
//
// Unlike sensor and scan capabilities, touch has no per-connection
// demand: events are broadcast to every open connection for the whole
// server lifetime. Clients that only care about touch attach on the
// touch endpoint, which subscribes to nothing and simply keeps the
// connection open to receive broadcasts.
package touch
