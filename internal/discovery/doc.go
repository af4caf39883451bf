// Package discovery advertises the sensord service over mDNS so clients
// on the local network can find the WebSocket endpoint without knowing
// the device's address.
//
// The service is registered as _sensord._tcp in the .local domain with
// the version and capability count in its TXT records. Advertisement is
// optional and controlled by configuration.
package discovery
