package history

import (
	"time"

	"github.com/nerrad567/aquarium-core/internal/bus"
)

// Telemetry receives numeric samples for time-series storage.
// Implemented by *influxdb.Client.
type Telemetry interface {
	WriteReading(kind string, value float64, ts time.Time)
	WriteDeviceStatus(device, mode, state string, ts time.Time)
}

// TelemetrySink forwards readings and device status from the history
// stream to a Telemetry backend. Other topics are ignored.
type TelemetrySink struct {
	telemetry Telemetry
}

// NewTelemetrySink wraps t as a Sink.
func NewTelemetrySink(t Telemetry) *TelemetrySink {
	return &TelemetrySink{telemetry: t}
}

// Append implements Sink.
func (s *TelemetrySink) Append(ts time.Time, topic, value string) {
	ev, err := bus.Decode(topic, []byte(value))
	if err != nil {
		return
	}

	switch e := ev.(type) {
	case bus.ReadingEvent:
		s.telemetry.WriteReading(string(e.Reading.Kind), e.Reading.Value, ts)
	case bus.StatusEvent:
		s.telemetry.WriteDeviceStatus(string(e.Device), string(e.Status.Mode), string(e.Status.State), ts)
	}
}
