package capability

import (
	"encoding/json"
	"testing"
)

func TestClassOf(t *testing.T) {
	tests := []struct {
		capType string
		want    Class
	}{
		{TypeLocation, ClassLocation},
		{TypeTouch, ClassTouch},
		{TypeWifiScan, ClassScan},
		{TypeBluetoothScan, ClassScan},
		{TypeNetworkScan, ClassScan},
		{"android.sensor.accelerometer", ClassSensor},
		{"android.sensor.gyroscope", ClassSensor},
	}

	for _, tt := range tests {
		t.Run(tt.capType, func(t *testing.T) {
			if got := ClassOf(tt.capType); got != tt.want {
				t.Errorf("ClassOf(%q) = %v, want %v", tt.capType, got, tt.want)
			}
		})
	}
}

func TestSensorPayload(t *testing.T) {
	c := Capability{Type: "android.sensor.accelerometer", Name: "Accelerometer"}
	p := SensorPayload(c, []float64{0.1, 9.8, 0.0}, 3, 1700000000000)

	if p["type"] != c.Type {
		t.Errorf("type = %v, want %q", p["type"], c.Type)
	}
	if p["name"] != c.Name {
		t.Errorf("name = %v, want %q", p["name"], c.Name)
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["values"]; !ok {
		t.Error("payload missing values field")
	}
	if _, ok := decoded["timestamp"]; !ok {
		t.Error("payload missing timestamp field")
	}
}

func TestLocationPayload(t *testing.T) {
	f := Fix{Latitude: 51.5, Longitude: -0.12, Accuracy: 4.5, Time: 1700000000000}

	p := LocationPayload(f, true)
	if p["type"] != TypeLocation {
		t.Errorf("type = %v, want %q", p["type"], TypeLocation)
	}
	if p["lastKnownLocation"] != true {
		t.Error("lastKnownLocation should be true for re-pushed fixes")
	}

	p = LocationPayload(f, false)
	if p["lastKnownLocation"] != false {
		t.Error("lastKnownLocation should be false for fresh fixes")
	}
}

func TestScanPayload_NilResults(t *testing.T) {
	p := ScanPayload(TypeWifiScan, nil)

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// An empty cycle must serialize as [], not null.
	var decoded struct {
		Values []ScanResult `json:"values"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Values == nil {
		t.Error("values should be an empty array, not null")
	}
}
