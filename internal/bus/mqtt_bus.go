package bus

import (
	"fmt"
	"slices"
	"sync"

	"github.com/nerrad567/aquarium-core/internal/infrastructure/mqtt"
)

// MQTTClient is the subset of *mqtt.Client used by MQTTBus.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// MQTTBus carries aquarium events over an MQTT broker.
//
// The underlying client keeps one handler per topic, so MQTTBus subscribes
// each topic once and fans messages out to its local subscribers.
//
// Thread Safety: all methods are safe for concurrent use.
type MQTTBus struct {
	client MQTTClient
	qos    byte

	// subMu serialises Subscribe so the first subscriber of a topic and
	// its broker subscription are settled before anyone else joins.
	subMu sync.Mutex

	mu     sync.RWMutex
	routes map[string][]Subscriber

	logger Logger
}

// NewMQTTBus creates a bus on top of a connected MQTT client.
func NewMQTTBus(client MQTTClient, qos byte) *MQTTBus {
	return &MQTTBus{
		client: client,
		qos:    qos,
		routes: make(map[string][]Subscriber),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for decode diagnostics.
func (b *MQTTBus) SetLogger(logger Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
}

// Publish encodes ev and sends it to the broker.
func (b *MQTTBus) Publish(ev Event) error {
	msg, err := Encode(ev)
	if err != nil {
		return err
	}
	if err := b.client.Publish(msg.Topic, msg.Payload, b.qos, msg.Retained); err != nil {
		return fmt.Errorf("publishing %s: %w", msg.Topic, err)
	}
	return nil
}

// Subscribe registers sub for topic, subscribing at the broker on first use.
// If the broker subscription fails only sub is removed again.
func (b *MQTTBus) Subscribe(topic string, sub Subscriber) error {
	if err := validateSubscription(topic, sub); err != nil {
		return err
	}

	b.subMu.Lock()
	defer b.subMu.Unlock()

	b.mu.Lock()
	first := len(b.routes[topic]) == 0
	b.routes[topic] = append(b.routes[topic], sub)
	b.mu.Unlock()

	if !first {
		return nil
	}

	if err := b.client.Subscribe(topic, b.qos, b.handle); err != nil {
		b.mu.Lock()
		b.routes[topic] = slices.DeleteFunc(b.routes[topic], func(s Subscriber) bool { return s == sub })
		if len(b.routes[topic]) == 0 {
			delete(b.routes, topic)
		}
		b.mu.Unlock()
		return fmt.Errorf("subscribing %s: %w", topic, err)
	}
	return nil
}

// handle is the MQTT message handler for every routed topic. Decode errors
// are reported to subscribers and logged, never returned to the client.
func (b *MQTTBus) handle(topic string, payload []byte) error {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.routes[topic]...)
	logger := b.logger
	b.mu.RUnlock()

	if err := route(subs, topic, payload); err != nil {
		logger.Warn("dropping malformed message",
			"topic", topic,
			"payload", string(payload),
			"error", err,
		)
	}
	return nil
}
