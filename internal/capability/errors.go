package capability

import "errors"

// Sentinel errors returned by capability drivers.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, capability.ErrRadioDisabled) {
//	    // retry on the next cycle
//	}
var (
	// ErrNotFound is returned when a capability type does not exist.
	ErrNotFound = errors.New("capability: not found")

	// ErrAlreadySubscribed is returned when a second subscription is
	// requested for a capability that already has one.
	ErrAlreadySubscribed = errors.New("capability: already subscribed")

	// ErrRadioDisabled is returned when the radio needed for a scan or
	// stream is switched off.
	ErrRadioDisabled = errors.New("capability: radio disabled")

	// ErrPermissionDenied is returned when the host platform denies the
	// permission required by a capability.
	ErrPermissionDenied = errors.New("capability: permission denied")
)
