// Package protocol defines the wire contract of the aquarium bus.
//
// It owns the value types exchanged between sensors, actuator controllers,
// the coordinator and dashboards, and the exact payload encodings used on
// each topic:
//
//	aquarium/temp          {"temp": 22.4}
//	aquarium/water_level   {"level": 48}
//	aquarium/pump          ON | OFF | AUTO
//	aquarium/pump/status   {"mode":"AUTO","state":"OFF"}   (retained)
//	aquarium/lamp          ON | OFF | AUTO
//	aquarium/lamp/status   {"mode":"MANUAL","state":"ON"}  (retained)
//	aquarium/feed          pressed | released
//	aquarium/alarm         free text
//
// The package has no dependencies on transport or storage. Topic strings are
// built with Topics{} so every component agrees on the same names.
package protocol
