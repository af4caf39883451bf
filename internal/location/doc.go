// Package location streams device position to subscribed connections.
//
// Fresh fixes pushed by the platform are forwarded immediately. In
// parallel a poll loop re-emits the last known fix at a fixed cadence,
// marked with lastKnownLocation, so subscribers keep a current position
// between platform updates. Both producers run only while at least one
// connection demands location; the stream registry drives activation.
//
// Connections may also request the last known fix on demand with an
// inbound getLastKnownLocation message; the reply goes to the requesting
// connection alone.
package location
