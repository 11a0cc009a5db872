package bus

import (
	"sync"
)

// MemoryBus is an in-process bus with MQTT-like retained semantics.
//
// Every published event is round-tripped through Encode and Decode so that
// subscribers see exactly what they would receive from a broker. Delivery is
// synchronous on the publishing goroutine, outside the bus lock.
type MemoryBus struct {
	mu       sync.Mutex
	routes   map[string][]Subscriber
	retained map[string][]byte
	log      []Message
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		routes:   make(map[string][]Subscriber),
		retained: make(map[string][]byte),
	}
}

// Publish encodes ev and delivers it to every subscriber of its topic.
func (b *MemoryBus) Publish(ev Event) error {
	msg, err := Encode(ev)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.log = append(b.log, msg)
	if msg.Retained {
		b.retained[msg.Topic] = msg.Payload
	}
	subs := append([]Subscriber(nil), b.routes[msg.Topic]...)
	b.mu.Unlock()

	_ = route(subs, msg.Topic, msg.Payload)
	return nil
}

// Inject delivers a raw payload as if it arrived from an external publisher.
// It is how tests and simulators feed sensor data and malformed input.
func (b *MemoryBus) Inject(topic string, payload []byte) {
	b.mu.Lock()
	b.log = append(b.log, Message{Topic: topic, Payload: payload})
	subs := append([]Subscriber(nil), b.routes[topic]...)
	b.mu.Unlock()

	_ = route(subs, topic, payload)
}

// Subscribe registers sub for topic. A retained message on the topic is
// delivered immediately.
func (b *MemoryBus) Subscribe(topic string, sub Subscriber) error {
	if err := validateSubscription(topic, sub); err != nil {
		return err
	}

	b.mu.Lock()
	b.routes[topic] = append(b.routes[topic], sub)
	payload, ok := b.retained[topic]
	b.mu.Unlock()

	if ok {
		_ = route([]Subscriber{sub}, topic, payload)
	}
	return nil
}

// Messages returns a copy of every message published or injected so far.
func (b *MemoryBus) Messages() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Message(nil), b.log...)
}

// MessagesOn returns the published messages for one topic, oldest first.
func (b *MemoryBus) MessagesOn(topic string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Message
	for _, m := range b.log {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}
