// Package influxdb provides optional server telemetry for sensord.
//
// When enabled, the client records operational measurements — dispatch
// counts per capability, connection counts, scan cycle durations — to an
// InfluxDB v2 bucket. It records how the server is behaving, not the
// sensor data itself; clients wanting the event stream use the WebSocket
// endpoints or the MQTT bridge.
//
// Writes are non-blocking and batched by the underlying client, so
// telemetry never stalls dispatch.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
package influxdb
