package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteDeviceMessage records a device message in the telemetry bucket.
//
// This is the primary method for recording device telemetry. The write is
// non-blocking; data is batched and sent asynchronously. The registry calls
// this for every non-report message it ingests.
//
// Parameters:
//   - deviceID: Unique identifier for the device
//   - severity: Message severity tier (info, warning, error, critical)
//   - text: The message body
//   - ts: When the message was received
func (c *Client) WriteDeviceMessage(deviceID, severity, text string, ts time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"iot_message",
		map[string]string{
			"device_id": deviceID,
			"severity":  severity,
		},
		map[string]interface{}{
			"text": text,
		},
		ts,
	)

	c.writeAPI.WritePoint(point)
}

// WriteLivenessAlert records a lost-connection alert for a device.
//
// Parameters:
//   - deviceID: Device identifier
//   - missedWindows: Monitor windows elapsed without a message
func (c *Client) WriteLivenessAlert(deviceID string, missedWindows int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"liveness_alert",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"missed_windows": missedWindows,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "hub-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
