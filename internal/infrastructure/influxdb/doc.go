// Package influxdb writes aquarium telemetry to InfluxDB 2.x.
//
// Sensor readings become points in the "sensor_readings" measurement,
// tagged by sensor kind. Device status changes become points in
// "device_status" with the relay state as a 0/1 field so dashboards can
// chart pump and lamp duty cycles.
//
// Writes are non-blocking: the official influxdb-client-go batches points
// and reports failures through the callback set with SetOnError.
//
// Usage:
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteReading("temperature", 24.5, time.Now())
package influxdb
