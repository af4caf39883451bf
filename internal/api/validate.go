package api

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/nerrad567/sensord/internal/capability"
	"github.com/nerrad567/sensord/internal/stream"
)

// isScanType reports whether name (already lowercased) is one of the scan
// capability types, which resolve without a hardware lookup.
func isScanType(name string) bool {
	switch name {
	case capability.TypeWifiScan, capability.TypeBluetoothScan, capability.TypeNetworkScan:
		return true
	}
	return false
}

// resolveSingle validates a /sensor/connect request's query parameters and
// builds the attachment.
func (s *Server) resolveSingle(query url.Values) (stream.Attachment, *closeError) {
	if !query.Has("type") {
		return stream.Attachment{}, &closeError{CloseParameterMissing, "required parameter 'type' is missing"}
	}
	name := strings.TrimSpace(query.Get("type"))
	if name == "" {
		return stream.Attachment{}, &closeError{CloseNoCapabilitySpecified, "no sensor specified"}
	}

	if lower := strings.ToLower(name); isScanType(lower) {
		return stream.Scan(lower), nil
	}

	c, ok := s.source.Find(name)
	if !ok {
		return stream.Attachment{}, &closeError{CloseCapabilityNotFound, "sensor of type '" + name + "' not found"}
	}
	switch c.Type {
	case capability.TypeLocation:
		return stream.Location(), nil
	case capability.TypeTouch:
		return stream.Touch(), nil
	}
	return stream.Single(c.Type), nil
}

// resolveList validates a /sensors/connect request's query parameters and
// builds the attachment. Unknown names inside the list are skipped with a
// warning rather than failing the connection; only a list left empty after
// filtering is fatal.
func (s *Server) resolveList(query url.Values) (stream.Attachment, *closeError) {
	if !query.Has("types") {
		return stream.Attachment{}, &closeError{CloseParameterMissing, "required parameter 'types' is missing"}
	}

	var names []string
	if err := json.Unmarshal([]byte(query.Get("types")), &names); err != nil {
		return stream.Attachment{}, &closeError{CloseInvalidArray, "'types' is not a valid JSON array"}
	}
	if len(names) == 0 {
		return stream.Attachment{}, &closeError{CloseNoCapabilitySpecified, "no sensors specified"}
	}
	if len(names) == 1 {
		return stream.Attachment{}, &closeError{CloseTooFewCapabilities, "at least two sensor types must be specified; use /sensor/connect for one"}
	}

	resolved := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		capType, ok := s.resolveListEntry(name)
		if !ok {
			s.logger.Warn("unknown sensor type skipped", "type", name)
			continue
		}
		if _, dup := seen[capType]; dup {
			continue
		}
		seen[capType] = struct{}{}
		resolved = append(resolved, capType)
	}
	if len(resolved) == 0 {
		return stream.Attachment{}, &closeError{CloseNoCapabilitySpecified, "no valid sensors specified"}
	}
	return stream.List(resolved), nil
}

// resolveListEntry resolves one list member to its canonical capability type.
func (s *Server) resolveListEntry(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	if lower := strings.ToLower(name); isScanType(lower) {
		return lower, true
	}
	c, ok := s.source.Find(name)
	if !ok {
		return "", false
	}
	return c.Type, true
}

// checkPreconditions gates capabilities with a permission or service
// requirement. Runs after shape validation so parameter errors take
// precedence over permission errors.
func (s *Server) checkPreconditions(att stream.Attachment) *closeError {
	if att.WantsLocation() {
		if err := s.location.Available(); err != nil {
			return &closeError{ClosePermissionDenied, err.Error()}
		}
	}
	return nil
}
