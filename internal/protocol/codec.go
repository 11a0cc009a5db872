package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// temperaturePayload is the JSON body on aquarium/temp.
type temperaturePayload struct {
	Temp *float64 `json:"temp"`
}

// waterLevelPayload is the JSON body on aquarium/water_level.
type waterLevelPayload struct {
	Level *float64 `json:"level"`
}

// EncodeStatus marshals a status into its wire form.
// Invalid statuses are rejected rather than published.
func EncodeStatus(s DeviceStatus) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// DecodeStatus parses a status payload.
//
// The payload must be a JSON object with exactly the fields "mode" and
// "state" holding known values. Unknown fields are rejected so drift in the
// wire contract is noticed rather than silently tolerated.
func DecodeStatus(payload []byte) (DeviceStatus, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()

	var s DeviceStatus
	if err := dec.Decode(&s); err != nil {
		return DeviceStatus{}, fmt.Errorf("%w: %w", ErrInvalidStatus, err)
	}
	if err := s.Validate(); err != nil {
		return DeviceStatus{}, err
	}
	return s, nil
}

// ParseVerb parses a command payload. Surrounding whitespace and letter
// case are ignored, so " auto\n" is accepted as AUTO.
func ParseVerb(payload []byte) (Verb, error) {
	v := Verb(strings.ToUpper(strings.TrimSpace(string(payload))))
	switch v {
	case VerbOn, VerbOff, VerbAuto:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVerb, string(payload))
	}
}

// EncodeReading marshals a reading into the JSON body of its topic.
func EncodeReading(r Reading) ([]byte, error) {
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return nil, fmt.Errorf("%w: value %v", ErrInvalidReading, r.Value)
	}
	switch r.Kind {
	case SensorTemperature:
		return json.Marshal(temperaturePayload{Temp: &r.Value})
	case SensorWaterLevel:
		return json.Marshal(waterLevelPayload{Level: &r.Value})
	default:
		return nil, fmt.Errorf("%w: kind %q", ErrInvalidReading, r.Kind)
	}
}

// DecodeReading parses the JSON body of a sensor topic.
func DecodeReading(kind SensorKind, payload []byte) (Reading, error) {
	var value *float64

	switch kind {
	case SensorTemperature:
		var p temperaturePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return Reading{}, fmt.Errorf("%w: %w", ErrInvalidReading, err)
		}
		value = p.Temp
	case SensorWaterLevel:
		var p waterLevelPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return Reading{}, fmt.Errorf("%w: %w", ErrInvalidReading, err)
		}
		value = p.Level
	default:
		return Reading{}, fmt.Errorf("%w: kind %q", ErrInvalidReading, kind)
	}

	if value == nil {
		return Reading{}, fmt.Errorf("%w: missing value for %s", ErrInvalidReading, kind)
	}
	if math.IsNaN(*value) || math.IsInf(*value, 0) {
		return Reading{}, fmt.Errorf("%w: value %v", ErrInvalidReading, *value)
	}
	return Reading{Kind: kind, Value: *value}, nil
}

// ParseFeedState parses a feeder button payload.
func ParseFeedState(payload []byte) (FeedState, error) {
	s := FeedState(strings.ToLower(strings.TrimSpace(string(payload))))
	switch s {
	case FeedPressed, FeedReleased:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFeedState, string(payload))
	}
}
