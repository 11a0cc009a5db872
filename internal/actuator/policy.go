package actuator

import (
	"fmt"

	"github.com/nerrad567/aquarium-core/internal/protocol"
)

// Safety and automation thresholds.
const (
	// PumpDangerLevel is the water level (%) below which the pump is forced on.
	PumpDangerLevel = 10.0

	// PumpFullLevel is the water level (%) at which AUTO mode stops the pump.
	PumpFullLevel = 100.0

	// LampDangerLow and LampDangerHigh bound the safe water temperature (°C).
	LampDangerLow  = 10.0
	LampDangerHigh = 35.0

	pumpInitialLevel = 50.0
	lampInitialTemp  = 22.0
)

// Policy holds the device-specific rules of a controller.
type Policy interface {
	// Device is the device the controller drives.
	Device() protocol.Device

	// Metric is the sensor kind the controller watches.
	Metric() protocol.SensorKind

	// InitialMetric is assumed until the first reading arrives.
	InitialMetric() float64

	// Dangerous reports whether the metric demands a safety override.
	Dangerous(metric float64) bool

	// SafetyRelay is the relay state forced by an override, if any.
	SafetyRelay() (protocol.RelayState, bool)

	// AutoRelay applies the automatic rule in AUTO mode.
	AutoRelay(metric float64, relay protocol.RelayState) protocol.RelayState

	// DangerReason describes the dangerous condition for alarms.
	DangerReason(metric float64) string
}

// PumpPolicy keeps the tank from running dry.
type PumpPolicy struct{}

func (PumpPolicy) Device() protocol.Device      { return protocol.DevicePump }
func (PumpPolicy) Metric() protocol.SensorKind  { return protocol.SensorWaterLevel }
func (PumpPolicy) InitialMetric() float64       { return pumpInitialLevel }
func (PumpPolicy) Dangerous(level float64) bool { return level < PumpDangerLevel }

func (PumpPolicy) SafetyRelay() (protocol.RelayState, bool) { return protocol.RelayOn, true }

func (PumpPolicy) AutoRelay(level float64, relay protocol.RelayState) protocol.RelayState {
	if level >= PumpFullLevel {
		return protocol.RelayOff
	}
	return relay
}

func (PumpPolicy) DangerReason(level float64) string {
	return fmt.Sprintf("low water %g%%", level)
}

// LampPolicy returns the lamp to AUTO when the water temperature leaves the
// safe band. It never switches the relay itself.
type LampPolicy struct{}

func (LampPolicy) Device() protocol.Device     { return protocol.DeviceLamp }
func (LampPolicy) Metric() protocol.SensorKind { return protocol.SensorTemperature }
func (LampPolicy) InitialMetric() float64      { return lampInitialTemp }

func (LampPolicy) Dangerous(temp float64) bool {
	return temp < LampDangerLow || temp > LampDangerHigh
}

func (LampPolicy) SafetyRelay() (protocol.RelayState, bool) { return "", false }

func (LampPolicy) AutoRelay(_ float64, relay protocol.RelayState) protocol.RelayState {
	return relay
}

func (LampPolicy) DangerReason(temp float64) string {
	return fmt.Sprintf("dangerous temperature %g°C", temp)
}
