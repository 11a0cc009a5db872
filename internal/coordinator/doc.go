// Package coordinator implements the aquarium rule engine.
//
// The Coordinator watches every aquarium topic. It keeps the water level
// inside a band by commanding the pump, raises alarms for temperatures
// outside the comfort range, acknowledges feeding, and records every
// message it receives to a history sink exactly as it arrived.
//
// Pump commands are issued only when they would change the pump state as
// last observed. The coordinator updates its view optimistically when it
// commands the pump and then follows the retained pump status, so a
// repeated low reading before the status echo does not re-issue ON.
//
//	level < 30 and pump OFF  ->  pump ON  + alarm
//	level > 80 and pump ON   ->  pump OFF + alarm
//	temp > 30 or temp < 15   ->  alarm
//	feed pressed             ->  "Fish fed!"
package coordinator
