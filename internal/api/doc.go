// Package api provides the WebSocket streaming endpoints and the small
// HTTP discovery surface for sensord.
//
// Streaming clients connect on one of the resource paths (/sensor/connect,
// /sensors/connect, /gps, /touchscreen), are validated at accept time, and
// then receive events for the capabilities their attachment names. Requests
// that fail validation are closed immediately with an application close
// code in the 4001-4009 range and a short reason string.
//
// The server follows the same lifecycle pattern as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
