package stream

import "github.com/nerrad567/sensord/internal/capability"

// AttachmentKind discriminates the attachment variants.
type AttachmentKind int

const (
	// AttachSingle streams one hardware capability, bare payloads.
	AttachSingle AttachmentKind = iota
	// AttachList streams two or more capabilities, type-tagged payloads.
	AttachList
	// AttachLocation streams device location.
	AttachLocation
	// AttachTouch receives the ambient touch broadcast only.
	AttachTouch
	// AttachScan streams one periodic scan kind.
	AttachScan
)

// String returns the kind name for logging.
func (k AttachmentKind) String() string {
	switch k {
	case AttachSingle:
		return "single"
	case AttachList:
		return "list"
	case AttachLocation:
		return "location"
	case AttachTouch:
		return "touch"
	case AttachScan:
		return "scan"
	default:
		return "unknown"
	}
}

// Attachment is a connection's immutable stream declaration, set exactly
// once at accept time. Capability types are canonical (resolved by the
// router before attach).
type Attachment struct {
	Kind AttachmentKind

	// Capability is set for AttachSingle and AttachScan.
	Capability string

	// Capabilities is set for AttachList; always ≥2 entries.
	Capabilities []string
}

// Single builds a single-capability attachment.
func Single(capType string) Attachment {
	return Attachment{Kind: AttachSingle, Capability: capType}
}

// List builds a multi-capability attachment.
func List(capTypes []string) Attachment {
	return Attachment{Kind: AttachList, Capabilities: capTypes}
}

// Location builds a location attachment.
func Location() Attachment {
	return Attachment{Kind: AttachLocation}
}

// Touch builds a touch-only attachment.
func Touch() Attachment {
	return Attachment{Kind: AttachTouch}
}

// Scan builds a scan attachment for one of the scan capability types.
func Scan(capType string) Attachment {
	return Attachment{Kind: AttachScan, Capability: capType}
}

// DemandedTypes returns the capability types whose reference counts this
// attachment holds. Touch attachments demand nothing: touch is an ambient
// broadcast, not a counted subscription.
func (a Attachment) DemandedTypes() []string {
	switch a.Kind {
	case AttachSingle, AttachScan:
		return []string{a.Capability}
	case AttachList:
		return a.Capabilities
	case AttachLocation:
		return []string{capability.TypeLocation}
	default:
		return nil
	}
}

// Tagged reports whether deliveries to this attachment must carry the
// "type" field for client-side disambiguation.
func (a Attachment) Tagged() bool {
	return a.Kind == AttachList
}

// WantsLocation reports whether this attachment subscribes to location,
// directly or via a list. Used to gate the getLastKnownLocation request.
func (a Attachment) WantsLocation() bool {
	switch a.Kind {
	case AttachLocation:
		return true
	case AttachList:
		for _, c := range a.Capabilities {
			if c == capability.TypeLocation {
				return true
			}
		}
	}
	return false
}
