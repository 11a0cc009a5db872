package protocol

import "fmt"

// Mode is whether a device's relay is governed by its automatic rule or by
// an explicit ON/OFF command.
type Mode string

const (
	ModeAuto   Mode = "AUTO"
	ModeManual Mode = "MANUAL"
)

// Valid reports whether m is one of the two known modes.
func (m Mode) Valid() bool {
	return m == ModeAuto || m == ModeManual
}

// RelayState is the physical ON/OFF actuation of a device.
type RelayState string

const (
	RelayOn  RelayState = "ON"
	RelayOff RelayState = "OFF"
)

// Valid reports whether r is ON or OFF.
func (r RelayState) Valid() bool {
	return r == RelayOn || r == RelayOff
}

// DeviceStatus is the authoritative state of one actuator.
//
// It is published retained on the device's status topic by the owning
// controller and is read-only to every other component.
type DeviceStatus struct {
	Mode  Mode       `json:"mode"`
	State RelayState `json:"state"`
}

// Validate checks that both fields carry known values.
func (s DeviceStatus) Validate() error {
	if !s.Mode.Valid() {
		return fmt.Errorf("%w: mode %q", ErrInvalidStatus, s.Mode)
	}
	if !s.State.Valid() {
		return fmt.Errorf("%w: state %q", ErrInvalidStatus, s.State)
	}
	return nil
}

// String renders the status as "MODE/STATE" for logs.
func (s DeviceStatus) String() string {
	return string(s.Mode) + "/" + string(s.State)
}

// Device identifies one of the aquarium actuators.
type Device string

const (
	DevicePump Device = "pump"
	DeviceLamp Device = "lamp"
)

// Devices lists every actuator in a stable order.
func Devices() []Device {
	return []Device{DevicePump, DeviceLamp}
}

// ParseDevice converts a device name into a Device.
func ParseDevice(name string) (Device, error) {
	switch Device(name) {
	case DevicePump:
		return DevicePump, nil
	case DeviceLamp:
		return DeviceLamp, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDevice, name)
	}
}

// Metric returns the sensor kind the device reacts to.
func (d Device) Metric() SensorKind {
	if d == DeviceLamp {
		return SensorTemperature
	}
	return SensorWaterLevel
}

// Verb is the instruction carried by a Command.
type Verb string

const (
	VerbOn   Verb = "ON"
	VerbOff  Verb = "OFF"
	VerbAuto Verb = "AUTO"
)

// Command is a transient instruction to one device. It may come from an
// operator, from the coordinator, or from a controller's own safety logic.
type Command struct {
	Target Device
	Verb   Verb
}

// SensorKind identifies the stream a reading belongs to.
type SensorKind string

const (
	SensorTemperature SensorKind = "temperature"
	SensorWaterLevel  SensorKind = "water_level"
)

// Reading is a single sensor sample. Temperature is in °C, water level in
// percent of the tank.
type Reading struct {
	Kind  SensorKind
	Value float64
}

// Alarm is a free-form notice for humans. There is no acknowledgement.
type Alarm struct {
	Text string
}

// FeedState is the state reported by the feeder button.
type FeedState string

const (
	FeedPressed  FeedState = "pressed"
	FeedReleased FeedState = "released"
)
