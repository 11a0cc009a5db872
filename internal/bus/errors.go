package bus

import "errors"

// Domain-specific errors for bus operations.
var (
	// ErrUnknownTopic is returned when a payload arrives on a topic that is
	// not part of the aquarium contract.
	ErrUnknownTopic = errors.New("bus: unknown topic")

	// ErrMalformedPayload is returned when a payload cannot be decoded into
	// the event type of its topic.
	ErrMalformedPayload = errors.New("bus: malformed payload")

	// ErrNotPublishable is returned when an event has no wire form (ticks).
	ErrNotPublishable = errors.New("bus: event cannot be published")

	// ErrInvalidTopic is returned when subscribing with an empty or
	// wildcard topic. Subscriptions name exact topics.
	ErrInvalidTopic = errors.New("bus: invalid subscription topic")

	// ErrNilSubscriber is returned when subscribing without a subscriber.
	ErrNilSubscriber = errors.New("bus: subscriber cannot be nil")
)
