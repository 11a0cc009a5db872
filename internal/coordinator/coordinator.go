package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/aquarium-core/internal/bus"
	"github.com/nerrad567/aquarium-core/internal/history"
	"github.com/nerrad567/aquarium-core/internal/infrastructure/metrics"
	"github.com/nerrad567/aquarium-core/internal/protocol"
)

// Rule thresholds.
const (
	MaxTemperature = 30.0 // °C
	MinTemperature = 15.0 // °C

	// PumpOnLevel and PumpOffLevel bound the water level band (%).
	PumpOnLevel  = 30.0
	PumpOffLevel = 80.0
)

// Rule names used in logs and metrics.
const (
	RuleLowWater  = "pump_on_low_water"
	RuleRestored  = "pump_off_water_restored"
	RuleHighTemp  = "high_temperature"
	RuleLowTemp   = "low_temperature"
	RuleFeedReply = "feed_confirmation"
)

// FeedConfirmation is the alarm text published when the feeder is pressed.
const FeedConfirmation = "Fish fed!"

// Logger defines the logging interface used by the coordinator.
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

// Coordinator applies the cross-device rules.
//
// Like the actuator controllers it processes events one at a time from its
// own queue; Devices and PumpKnownState may be read from other goroutines.
type Coordinator struct {
	pub   bus.Publisher
	sink  history.Sink
	queue *bus.Queue
	now   func() time.Time

	mu        sync.RWMutex
	pumpKnown protocol.RelayState
	statuses  map[protocol.Device]protocol.DeviceStatus

	logger  Logger
	metrics *metrics.Registry
}

var _ bus.Observer = (*Coordinator)(nil)

// New creates a coordinator that publishes on pub and records to sink.
// A nil sink disables history.
func New(pub bus.Publisher, sink history.Sink) *Coordinator {
	return &Coordinator{
		pub:       pub,
		sink:      sink,
		queue:     bus.NewQueue(),
		now:       time.Now,
		pumpKnown: protocol.RelayOff,
		statuses:  make(map[protocol.Device]protocol.DeviceStatus),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger.
func (c *Coordinator) SetLogger(logger Logger) {
	c.logger = logger
}

// SetMetrics sets the metrics registry. Nil disables instrumentation.
func (c *Coordinator) SetMetrics(m *metrics.Registry) {
	c.metrics = m
}

// PumpKnownState is the pump relay state as last observed or commanded.
func (c *Coordinator) PumpKnownState() protocol.RelayState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pumpKnown
}

// Devices returns the last status seen for each device.
func (c *Coordinator) Devices() map[protocol.Device]protocol.DeviceStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[protocol.Device]protocol.DeviceStatus, len(c.statuses))
	for d, s := range c.statuses {
		out[d] = s
	}
	return out
}

// Topics returns every topic the coordinator consumes.
func (c *Coordinator) Topics() []string {
	return protocol.Topics{}.All()
}

// Attach subscribes the coordinator to its topics on b.
func (c *Coordinator) Attach(b bus.Bus) error {
	for _, topic := range c.Topics() {
		if err := b.Subscribe(topic, c); err != nil {
			return fmt.Errorf("coordinator: %w", err)
		}
	}
	return nil
}

// Deliver implements bus.Subscriber.
func (c *Coordinator) Deliver(ev bus.Event) {
	c.queue.Push(ev)
}

// Observe implements bus.Observer: every message on the coordinator's
// topics is recorded to history exactly as received, malformed or not.
func (c *Coordinator) Observe(topic string, payload []byte) {
	if c.sink == nil {
		return
	}
	c.sink.Append(c.now(), topic, string(payload))
}

// Reject implements bus.Subscriber. Malformed payloads were already
// recorded by Observe; no rule runs.
func (c *Coordinator) Reject(topic string, payload []byte, err error) {
	c.metrics.PayloadRejected("coordinator")
	c.logger.Warn("ignoring malformed message", "topic", topic, "payload", string(payload), "error", err)
}

// Run processes queued events until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info("coordinator started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("coordinator stopped")
			return nil
		case <-c.queue.Ready():
			for _, ev := range c.queue.Drain() {
				c.Process(ev)
			}
		}
	}
}

// Process applies the rule matching ev.
func (c *Coordinator) Process(ev bus.Event) {
	bus.Dispatch(c, ev)
}

// HandleReading applies the water level and temperature rules.
func (c *Coordinator) HandleReading(ev bus.ReadingEvent) {
	switch ev.Reading.Kind {
	case protocol.SensorWaterLevel:
		c.waterLevel(ev.Reading.Value)
	case protocol.SensorTemperature:
		c.temperature(ev.Reading.Value)
	}
}

func (c *Coordinator) waterLevel(level float64) {
	c.mu.Lock()
	known := c.pumpKnown
	var (
		verb protocol.Verb
		rule string
		text string
	)
	switch {
	case level < PumpOnLevel && known == protocol.RelayOff:
		verb, rule = protocol.VerbOn, RuleLowWater
		text = fmt.Sprintf("Pump ON (Low water %g%%)", level)
		c.pumpKnown = protocol.RelayOn
	case level > PumpOffLevel && known == protocol.RelayOn:
		verb, rule = protocol.VerbOff, RuleRestored
		text = fmt.Sprintf("Pump OFF (Water restored %g%%)", level)
		c.pumpKnown = protocol.RelayOff
	}
	c.mu.Unlock()

	if verb == "" {
		return
	}

	c.metrics.RuleFired(rule)
	c.logger.Info("rule fired", "rule", rule, "level", level, "command", verb)
	c.publish(bus.CommandEvent{Command: protocol.Command{Target: protocol.DevicePump, Verb: verb}})
	c.alarm(text)
}

func (c *Coordinator) temperature(t float64) {
	switch {
	case t > MaxTemperature:
		c.metrics.RuleFired(RuleHighTemp)
		c.alarm(fmt.Sprintf("High Temperature! (%g°C)", t))
	case t < MinTemperature:
		c.metrics.RuleFired(RuleLowTemp)
		c.alarm(fmt.Sprintf("Low Temperature! (%g°C)", t))
	}
}

// HandleStatus mirrors device status; the pump status overwrites the
// known pump state unconditionally.
func (c *Coordinator) HandleStatus(ev bus.StatusEvent) {
	c.mu.Lock()
	c.statuses[ev.Device] = ev.Status
	if ev.Device == protocol.DevicePump {
		c.pumpKnown = ev.Status.State
	}
	c.mu.Unlock()

	c.logger.Debug("status observed", "device", ev.Device, "status", ev.Status.String())
}

// HandleFeed confirms a feeder press.
func (c *Coordinator) HandleFeed(ev bus.FeedEvent) {
	if ev.State != protocol.FeedPressed {
		return
	}
	c.metrics.RuleFired(RuleFeedReply)
	c.alarm(FeedConfirmation)
}

func (c *Coordinator) alarm(text string) {
	c.metrics.AlarmRaised()
	c.logger.Warn("alarm", "text", text)
	c.publish(bus.AlarmEvent{Alarm: protocol.Alarm{Text: text}})
}

func (c *Coordinator) publish(ev bus.Event) {
	if err := c.pub.Publish(ev); err != nil {
		c.logger.Error("publish failed", "topic", ev.Topic(), "error", err)
	}
}
