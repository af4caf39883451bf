package capability

// Well-known capability type strings.
const (
	// TypeLocation is the device location capability.
	TypeLocation = "android.sensor.gps"

	// TypeTouch is the screen-touch event capability.
	TypeTouch = "touchscreen"

	// TypeWifiScan is the access-point visibility scan capability.
	TypeWifiScan = "wifi_scan"

	// TypeBluetoothScan is the short-range wireless discovery capability.
	TypeBluetoothScan = "bluetooth_scan"

	// TypeNetworkScan is the combined wifi+bluetooth scan capability.
	TypeNetworkScan = "network_scan"
)

// Touch event actions, matching the platform's motion event names.
const (
	ActionDown = "ACTION_DOWN"
	ActionMove = "ACTION_MOVE"
	ActionUp   = "ACTION_UP"
)

// Capability describes one producible data stream.
type Capability struct {
	// Type is the wire identifier, e.g. "android.sensor.accelerometer".
	Type string `json:"type"`
	// Name is the human-readable label, e.g. "BMI160 Accelerometer".
	Name string `json:"name"`
}

// Class partitions capabilities by the collaborator that produces them.
type Class int

const (
	// ClassSensor is a hardware sensor served by the Source.
	ClassSensor Class = iota
	// ClassLocation is the device location stream.
	ClassLocation
	// ClassScan is one of the periodic scan kinds.
	ClassScan
	// ClassTouch is the screen-touch stream.
	ClassTouch
)

// ClassOf returns the Class for a capability type string.
func ClassOf(capType string) Class {
	switch capType {
	case TypeLocation:
		return ClassLocation
	case TypeTouch:
		return ClassTouch
	case TypeWifiScan, TypeBluetoothScan, TypeNetworkScan:
		return ClassScan
	default:
		return ClassSensor
	}
}

// Event is a normalized capability event ready for dispatch.
type Event struct {
	// Capability is the wire type of the producing capability.
	Capability string
	// Payload is the JSON-serializable event body. Producers include the
	// "type" field; the dispatcher guarantees it on list-attached deliveries.
	Payload map[string]any
}

// ScanKind identifies one physical scan cycle.
type ScanKind string

const (
	// ScanWifi is the access-point visibility cycle.
	ScanWifi ScanKind = "wifi"
	// ScanBluetooth is the short-range wireless discovery cycle.
	ScanBluetooth ScanKind = "bluetooth"
)

// ScanResult is one discovered network or device from a scan cycle.
type ScanResult struct {
	ID     string `json:"networkOrDeviceId"`
	Name   string `json:"name,omitempty"`
	Signal int    `json:"signalStrength"`
}

// Fix is one location reading.
type Fix struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
	Bearing   float32
	Accuracy  float32
	Speed     float32
	// Time is the fix timestamp in epoch milliseconds.
	Time int64
}

// TouchEvent is one screen-touch reading.
type TouchEvent struct {
	Action string
	X      float32
	Y      float32
	// Time is the event timestamp in epoch milliseconds.
	Time int64
}

// SensorPayload builds the wire payload for a hardware sensor reading.
func SensorPayload(c Capability, values []float64, accuracy int, timestamp int64) map[string]any {
	return map[string]any{
		"type":      c.Type,
		"name":      c.Name,
		"values":    values,
		"accuracy":  accuracy,
		"timestamp": timestamp,
	}
}

// LocationPayload builds the wire payload for a location fix.
// lastKnown marks fixes re-pushed by the poll loop rather than fresh
// platform updates.
func LocationPayload(f Fix, lastKnown bool) map[string]any {
	return map[string]any{
		"type":              TypeLocation,
		"latitude":          f.Latitude,
		"longitude":         f.Longitude,
		"altitude":          f.Altitude,
		"bearing":           f.Bearing,
		"accuracy":          f.Accuracy,
		"speed":             f.Speed,
		"timestamp":         f.Time,
		"lastKnownLocation": lastKnown,
	}
}

// TouchPayload builds the wire payload for a touch event.
func TouchPayload(e TouchEvent) map[string]any {
	return map[string]any{
		"type":      TypeTouch,
		"action":    e.Action,
		"x":         e.X,
		"y":         e.Y,
		"timestamp": e.Time,
	}
}

// ScanPayload builds the wire payload for a completed scan cycle slice.
func ScanPayload(capType string, results []ScanResult) map[string]any {
	if results == nil {
		results = []ScanResult{}
	}
	return map[string]any{
		"type":   capType,
		"values": results,
	}
}
