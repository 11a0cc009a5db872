package bus

import (
	"fmt"

	"github.com/nerrad567/aquarium-core/internal/protocol"
)

// Message is the wire form of an event.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// decodeFunc turns the payload of one known topic into an event.
type decodeFunc func(payload []byte) (Event, error)

// decoders maps each aquarium topic to its payload decoder. It is the only
// place where topic strings are resolved into event kinds.
var decoders = buildDecoders()

func buildDecoders() map[string]decodeFunc {
	topics := protocol.Topics{}

	m := map[string]decodeFunc{
		topics.Temperature(): decodeReading(protocol.SensorTemperature),
		topics.WaterLevel():  decodeReading(protocol.SensorWaterLevel),
		topics.Feed(): func(payload []byte) (Event, error) {
			state, err := protocol.ParseFeedState(payload)
			if err != nil {
				return nil, err
			}
			return FeedEvent{State: state}, nil
		},
		topics.Alarm(): func(payload []byte) (Event, error) {
			return AlarmEvent{Alarm: protocol.Alarm{Text: string(payload)}}, nil
		},
	}

	for _, d := range protocol.Devices() {
		m[topics.Command(d)] = decodeCommand(d)
		m[topics.Status(d)] = decodeStatus(d)
	}
	return m
}

func decodeReading(kind protocol.SensorKind) decodeFunc {
	return func(payload []byte) (Event, error) {
		r, err := protocol.DecodeReading(kind, payload)
		if err != nil {
			return nil, err
		}
		return ReadingEvent{Reading: r}, nil
	}
}

func decodeCommand(d protocol.Device) decodeFunc {
	return func(payload []byte) (Event, error) {
		verb, err := protocol.ParseVerb(payload)
		if err != nil {
			return nil, err
		}
		return CommandEvent{Command: protocol.Command{Target: d, Verb: verb}}, nil
	}
}

func decodeStatus(d protocol.Device) decodeFunc {
	return func(payload []byte) (Event, error) {
		s, err := protocol.DecodeStatus(payload)
		if err != nil {
			return nil, err
		}
		return StatusEvent{Device: d, Status: s}, nil
	}
}

// Decode resolves a raw bus message into a typed event.
//
// Returns:
//   - Event: the decoded event
//   - error: ErrUnknownTopic for topics outside the contract, or
//     ErrMalformedPayload wrapping the protocol error otherwise
func Decode(topic string, payload []byte) (Event, error) {
	decode, ok := decoders[topic]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}

	ev, err := decode(payload)
	if err != nil {
		return nil, fmt.Errorf("%w on %s: %w", ErrMalformedPayload, topic, err)
	}
	return ev, nil
}

// Encode renders an event into its wire form. Status events are retained so
// late subscribers see the current state; everything else is not.
func Encode(ev Event) (Message, error) {
	var (
		payload  []byte
		retained bool
		err      error
	)

	switch e := ev.(type) {
	case ReadingEvent:
		payload, err = protocol.EncodeReading(e.Reading)
	case CommandEvent:
		payload = []byte(e.Command.Verb)
	case StatusEvent:
		payload, err = protocol.EncodeStatus(e.Status)
		retained = true
	case FeedEvent:
		payload = []byte(e.State)
	case AlarmEvent:
		payload = []byte(e.Alarm.Text)
	default:
		return Message{}, fmt.Errorf("%w: %T", ErrNotPublishable, ev)
	}
	if err != nil {
		return Message{}, err
	}

	return Message{Topic: ev.Topic(), Payload: payload, Retained: retained}, nil
}
