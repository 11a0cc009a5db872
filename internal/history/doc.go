// Package history records every aquarium bus event for later inspection.
//
// The coordinator writes through the Sink interface: an append-only
// (timestamp, topic, value) log whose failures are logged by the sink and
// never surfaced to the caller. SQLiteLog is the durable store and the
// source for the history API and the aquarium-logs tool. TelemetrySink
// mirrors numeric readings and relay states into a time-series database.
// MultiSink fans one append out to several sinks.
package history
