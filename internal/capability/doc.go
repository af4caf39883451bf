// Package capability defines the contract between sensord and the host's
// sensing layer.
//
// The sensing layer (hardware sensors, location, touch input, radio scans)
// is platform-specific and lives behind the interfaces in this package.
// sensord never talks to hardware directly: the stream registry mediates
// exactly one active subscription per capability, reference-counted across
// all interested connections.
//
// # Capability names
//
// A capability is identified by its wire type string. Hardware sensors use
// the platform's reverse-DNS names (e.g. "android.sensor.accelerometer"),
// location is "android.sensor.gps", touch input is "touchscreen", and the
// periodic scans are "wifi_scan", "bluetooth_scan" and "network_scan"
// (the combined set). Lookups are case-insensitive.
//
// # Drivers
//
// The sim subpackage provides a deterministic in-process driver used for
// development and tests. Real drivers adapt the host platform's sensing
// APIs to these interfaces.
package capability
