package bus

// ReadingHandler is implemented by components that react to sensor samples.
type ReadingHandler interface {
	HandleReading(ev ReadingEvent)
}

// CommandHandler is implemented by components that react to device commands.
type CommandHandler interface {
	HandleCommand(ev CommandEvent)
}

// StatusHandler is implemented by components that observe device status.
type StatusHandler interface {
	HandleStatus(ev StatusEvent)
}

// FeedHandler is implemented by components that react to the feeder button.
type FeedHandler interface {
	HandleFeed(ev FeedEvent)
}

// AlarmHandler is implemented by components that observe alarms.
type AlarmHandler interface {
	HandleAlarm(ev AlarmEvent)
}

// TickHandler is implemented by components with periodic evaluation.
type TickHandler interface {
	HandleTick(ev TickEvent)
}

// Dispatch routes ev to the handler capability of target that matches its
// kind. It reports whether target implements that capability; events with
// no matching handler are dropped.
func Dispatch(target any, ev Event) bool {
	switch e := ev.(type) {
	case ReadingEvent:
		if h, ok := target.(ReadingHandler); ok {
			h.HandleReading(e)
			return true
		}
	case CommandEvent:
		if h, ok := target.(CommandHandler); ok {
			h.HandleCommand(e)
			return true
		}
	case StatusEvent:
		if h, ok := target.(StatusHandler); ok {
			h.HandleStatus(e)
			return true
		}
	case FeedEvent:
		if h, ok := target.(FeedHandler); ok {
			h.HandleFeed(e)
			return true
		}
	case AlarmEvent:
		if h, ok := target.(AlarmHandler); ok {
			h.HandleAlarm(e)
			return true
		}
	case TickEvent:
		if h, ok := target.(TickHandler); ok {
			h.HandleTick(e)
			return true
		}
	}
	return false
}
