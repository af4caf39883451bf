// Package mqtt provides the optional event egress bridge for sensord.
//
// When enabled, every dispatched capability event is republished to the
// broker under sensord/event/<capability>, letting home-automation and
// telemetry consumers receive the same stream as WebSocket clients
// without holding a WebSocket connection.
//
// The bridge buffers events internally and publishes from its own
// goroutine, so a slow or disconnected broker never stalls WebSocket
// dispatch. Connection management includes automatic reconnection with
// exponential backoff and a Last Will message for offline detection.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
package mqtt
