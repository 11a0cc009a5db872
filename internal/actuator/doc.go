// Package actuator implements the per-device controllers for the aquarium
// pump and lamp.
//
// A Controller owns one device's mode, relay state and last sensor value. It
// consumes commands addressed to its device, readings of its metric and
// periodic ticks from a single ordered queue, and publishes the resulting
// retained status after every processed event.
//
// Device differences live in a Policy:
//
//	Pump: danger below 10 % water level, forces AUTO and relay ON;
//	      in AUTO the relay switches OFF once the tank reads 100 %.
//	Lamp: danger below 10 °C or above 35 °C, forces AUTO only;
//	      there is no automatic relay rule.
//
// Usage:
//
//	pump := actuator.NewPump(b, 3*time.Second)
//	pump.SetLogger(log)
//	if err := pump.Attach(b); err != nil { ... }
//	go pump.Run(ctx)
package actuator
