package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementReadings = "sensor_readings"
	MeasurementStatus   = "device_status"
)

// WriteReading records one sensor sample, e.g. ("water_level", 42, ts).
func (c *Client) WriteReading(kind string, value float64, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(readingPoint(kind, value, ts))
}

// WriteDeviceStatus records the mode and relay state of a device.
func (c *Client) WriteDeviceStatus(device, mode, state string, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(statusPoint(device, mode, state, ts))
}

func readingPoint(kind string, value float64, ts time.Time) *write.Point {
	return write.NewPoint(MeasurementReadings,
		map[string]string{"sensor": kind},
		map[string]interface{}{"value": value},
		ts,
	)
}

// statusPoint tags by device and mode; the relay becomes on=0|1 so it can
// be aggregated.
func statusPoint(device, mode, state string, ts time.Time) *write.Point {
	on := 0
	if state == "ON" {
		on = 1
	}
	return write.NewPoint(MeasurementStatus,
		map[string]string{"device": device, "mode": mode},
		map[string]interface{}{"on": on, "state": state},
		ts,
	)
}
