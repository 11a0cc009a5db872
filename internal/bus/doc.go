// Package bus is the event bus adapter between aquarium components and the
// publish/subscribe transport.
//
// Raw (topic, payload) pairs are decoded exactly once, at the boundary, into
// a closed set of typed events:
//
//	ReadingEvent   aquarium/temp, aquarium/water_level
//	CommandEvent   aquarium/pump, aquarium/lamp
//	StatusEvent    aquarium/pump/status, aquarium/lamp/status
//	FeedEvent      aquarium/feed
//	AlarmEvent     aquarium/alarm
//	TickEvent      internal timer ticks (never published)
//
// Components never compare topic strings. They implement one handler
// interface per event kind they care about (ReadingHandler, CommandHandler,
// ...) and Dispatch routes each event to the matching capability.
//
// Two Bus implementations exist:
//   - MQTTBus, backed by the infrastructure MQTT client
//   - MemoryBus, an in-process bus with retained messages, used by tests and
//     single-process deployments
//
// Delivery into a component goes through a Queue so that bus events and
// timer ticks are processed strictly one at a time, in arrival order.
package bus
