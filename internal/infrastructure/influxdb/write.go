package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// EventDispatched records one dispatched event and its recipient count.
// This is the stream.Metrics entry point, called on the dispatch
// goroutine; the write is batched and non-blocking.
func (c *Client) EventDispatched(capType string, recipients int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"dispatch",
		map[string]string{
			"capability": capType,
		},
		map[string]interface{}{
			"events":     1,
			"recipients": recipients,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// ScanCycleCompleted records one finished scan cycle.
// This is the scan.Metrics entry point.
func (c *Client) ScanCycleCompleted(kind string, duration time.Duration, results int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"scan_cycle",
		map[string]string{
			"kind": kind,
		},
		map[string]interface{}{
			"duration_ms": float64(duration.Milliseconds()),
			"results":     results,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteConnectionCount records the current number of open streaming
// connections. Sampled periodically by the main loop.
func (c *Client) WriteConnectionCount(count int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"connections",
		nil,
		map[string]interface{}{
			"open": count,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
