package bus

import (
	"time"

	"github.com/nerrad567/aquarium-core/internal/protocol"
)

// Event is one typed message on the aquarium bus.
//
// The set of implementations is closed: only the types in this file
// satisfy the interface.
type Event interface {
	// Topic returns the wire topic of the event ("" for ticks).
	Topic() string

	isEvent()
}

// ReadingEvent carries a sensor sample.
type ReadingEvent struct {
	Reading protocol.Reading
}

// CommandEvent carries an instruction for one device.
type CommandEvent struct {
	Command protocol.Command
}

// StatusEvent carries the retained status of one device.
type StatusEvent struct {
	Device protocol.Device
	Status protocol.DeviceStatus
}

// FeedEvent carries a feeder button transition.
type FeedEvent struct {
	State protocol.FeedState
}

// AlarmEvent carries a human-readable alarm.
type AlarmEvent struct {
	Alarm protocol.Alarm
}

// TickEvent is a periodic timer tick. It exists only inside a component's
// queue and is never published.
type TickEvent struct {
	At time.Time
}

func (e ReadingEvent) Topic() string { return protocol.Topics{}.Reading(e.Reading.Kind) }
func (e CommandEvent) Topic() string { return protocol.Topics{}.Command(e.Command.Target) }
func (e StatusEvent) Topic() string  { return protocol.Topics{}.Status(e.Device) }
func (FeedEvent) Topic() string      { return protocol.Topics{}.Feed() }
func (AlarmEvent) Topic() string     { return protocol.Topics{}.Alarm() }
func (TickEvent) Topic() string      { return "" }

func (ReadingEvent) isEvent() {}
func (CommandEvent) isEvent() {}
func (StatusEvent) isEvent()  {}
func (FeedEvent) isEvent()    {}
func (AlarmEvent) isEvent()   {}
func (TickEvent) isEvent()    {}
