// Package api implements the HTTP API and WebSocket feed for the aquarium.
//
// This package provides:
//   - Read endpoints for device status and the event history
//   - A command endpoint that publishes ON, OFF or AUTO to a device
//   - A WebSocket hub that relays every aquarium topic to subscribers
//   - Prometheus metrics and a JSON system summary
//   - Middleware (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The server sits beside the control loops on the bus. Commands are
// published exactly as an operator's MQTT client would publish them, so the
// actuator controllers cannot tell the two apart. Events flow back through
// the hub, which subscribes to every aquarium topic.
//
// # Graceful Degradation
//
// Every dependency except the logger is optional. Without a bus, commands
// return 503; without history, the history endpoint returns 503.
package api
