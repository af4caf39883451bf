package api

// Application WebSocket close codes. Sent with a short human-readable
// reason when a connection is rejected or terminated by the server.
const (
	// CloseCapabilityNotFound rejects a single-capability request naming
	// an unknown capability.
	CloseCapabilityNotFound = 4001

	// CloseUnsupportedRequest rejects a WebSocket upgrade on an unknown path.
	CloseUnsupportedRequest = 4002

	// CloseParameterMissing rejects a request missing its required query
	// parameter (type or types).
	CloseParameterMissing = 4003

	// CloseServerStopped terminates open connections at server shutdown.
	CloseServerStopped = 4004

	// CloseHostAction terminates a connection on explicit host-side
	// operator action.
	CloseHostAction = 4005

	// CloseInvalidArray rejects a types value that does not parse as a
	// JSON array of strings.
	CloseInvalidArray = 4006

	// CloseTooFewCapabilities rejects a multi-capability request with
	// fewer than two entries; single-capability requests belong on
	// /sensor/connect.
	CloseTooFewCapabilities = 4007

	// CloseNoCapabilitySpecified rejects an empty capability request:
	// an empty type value, an empty types array, or a list left empty
	// after unknown names are filtered out.
	CloseNoCapabilitySpecified = 4008

	// ClosePermissionDenied rejects a capability whose permission or
	// service precondition is not met.
	ClosePermissionDenied = 4009
)

// maxCloseReason is the transport's close-reason size limit in bytes
// (125-byte control frame payload minus the 2-byte status code).
const maxCloseReason = 123

// closeError carries a rejection through validation to the close handshake.
type closeError struct {
	code   int
	reason string
}

// truncateReason trims a reason string to fit the close frame payload.
func truncateReason(reason string) string {
	if len(reason) <= maxCloseReason {
		return reason
	}
	return reason[:maxCloseReason]
}
