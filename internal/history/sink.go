package history

import "time"

// Sink is an append-only event log.
//
// Append must not block the caller for long and must not fail loudly:
// implementations log their own errors.
type Sink interface {
	Append(ts time.Time, topic, value string)
}

// Entry is one recorded event.
type Entry struct {
	ID         int64     `json:"id"`
	RecordedAt time.Time `json:"recorded_at"`
	Topic      string    `json:"topic"`
	Value      string    `json:"value"`
}

// Logger defines the logging interface used by sinks.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MultiSink appends to each sink in order.
type MultiSink []Sink

// Append implements Sink.
func (m MultiSink) Append(ts time.Time, topic, value string) {
	for _, s := range m {
		if s != nil {
			s.Append(ts, topic, value)
		}
	}
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ts time.Time, topic, value string)

// Append implements Sink.
func (f SinkFunc) Append(ts time.Time, topic, value string) {
	f(ts, topic, value)
}
