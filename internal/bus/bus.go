package bus

import (
	"fmt"
	"strings"
)

// Subscriber receives events from a bus.
//
// Deliver is called once per decoded message on a subscribed topic. Reject
// is called instead when the payload could not be decoded, so the component
// can emit a diagnostic. Neither may block: implementations enqueue and
// return.
type Subscriber interface {
	Deliver(ev Event)
	Reject(topic string, payload []byte, err error)
}

// Observer is an optional Subscriber extension. Observe sees the raw topic
// and payload of every message on the subscriber's topics before it is
// decoded, whether or not decoding then succeeds.
type Observer interface {
	Observe(topic string, payload []byte)
}

// Publisher sends events onto a bus.
type Publisher interface {
	Publish(ev Event) error
}

// Bus is a topic-addressed publish/subscribe transport.
type Bus interface {
	Publisher

	// Subscribe registers sub for an exact topic. Several subscribers may
	// share a topic; each receives every message.
	Subscribe(topic string, sub Subscriber) error
}

// Logger defines the logging interface used by bus implementations.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// validateSubscription checks the arguments common to every Subscribe.
func validateSubscription(topic string, sub Subscriber) error {
	if sub == nil {
		return ErrNilSubscriber
	}
	if topic == "" || strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	return nil
}

// route decodes one raw message and hands the result to every subscriber.
// Observers see the raw message first.
func route(subs []Subscriber, topic string, payload []byte) error {
	for _, s := range subs {
		if o, ok := s.(Observer); ok {
			o.Observe(topic, payload)
		}
	}

	ev, err := Decode(topic, payload)
	if err != nil {
		for _, s := range subs {
			s.Reject(topic, payload, err)
		}
		return err
	}
	for _, s := range subs {
		s.Deliver(ev)
	}
	return nil
}
