// Package scan coordinates the periodic wifi and bluetooth discovery
// cycles behind the scan capability types.
//
// # Demand Model
//
// Cycles are demand-driven. The stream registry calls Activate on the
// first subscriber of a scan capability and Deactivate after the last
// one leaves; the coordinator translates capability types into physical
// cycle demand ("network_scan" demands both radios) and keeps each radio
// cycling only while someone is listening.
//
// # Cycle Discipline
//
// At most one scan per kind is airborne at a time. The repeat timer
// ticks at a fixed interval; a tick that lands while the previous cycle
// is still in flight is skipped rather than queued. Start failures such
// as a disabled radio are logged and retried on the next tick, so a
// subscriber that connects before enabling the radio starts receiving
// results as soon as it comes up.
//
// # Emission
//
// A completed cycle emits the kind's own result slice plus the combined
// "network_scan" set, which merges the latest results of both kinds.
package scan
