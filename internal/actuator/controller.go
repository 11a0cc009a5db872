package actuator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/aquarium-core/internal/bus"
	"github.com/nerrad567/aquarium-core/internal/infrastructure/metrics"
	"github.com/nerrad567/aquarium-core/internal/protocol"
)

// Logger defines the logging interface used by controllers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Controller runs the mode/relay state machine of one device.
//
// Bus callbacks and the ticker only enqueue; all evaluation happens on the
// goroutine running Run, one event at a time in arrival order. The exported
// Handle* methods are the dispatch targets of that loop and may also be
// called directly when no loop is running.
//
// Thread Safety: Status may be called from any goroutine.
type Controller struct {
	policy Policy
	pub    bus.Publisher
	tick   time.Duration
	queue  *bus.Queue

	mu     sync.RWMutex
	mode   protocol.Mode
	relay  protocol.RelayState
	metric float64

	logger  Logger
	metrics *metrics.Registry
}

// NewController creates a controller in AUTO/OFF with the policy's initial
// metric. A tick of zero disables periodic re-evaluation.
func NewController(policy Policy, pub bus.Publisher, tick time.Duration) *Controller {
	return &Controller{
		policy: policy,
		pub:    pub,
		tick:   tick,
		queue:  bus.NewQueue(),
		mode:   protocol.ModeAuto,
		relay:  protocol.RelayOff,
		metric: policy.InitialMetric(),
		logger: noopLogger{},
	}
}

// NewPump creates the water pump controller.
func NewPump(pub bus.Publisher, tick time.Duration) *Controller {
	return NewController(PumpPolicy{}, pub, tick)
}

// NewLamp creates the heat lamp controller.
func NewLamp(pub bus.Publisher, tick time.Duration) *Controller {
	return NewController(LampPolicy{}, pub, tick)
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	c.logger = logger
}

// SetMetrics sets the metrics registry. Nil disables instrumentation.
func (c *Controller) SetMetrics(m *metrics.Registry) {
	c.metrics = m
}

// Device returns the device this controller drives.
func (c *Controller) Device() protocol.Device {
	return c.policy.Device()
}

// Status returns the current mode and relay state.
func (c *Controller) Status() protocol.DeviceStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return protocol.DeviceStatus{Mode: c.mode, State: c.relay}
}

// LastMetric returns the most recent sensor value seen.
func (c *Controller) LastMetric() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metric
}

// Topics returns the topics the controller consumes.
func (c *Controller) Topics() []string {
	t := protocol.Topics{}
	return []string{
		t.Command(c.policy.Device()),
		t.Reading(c.policy.Metric()),
	}
}

// Attach subscribes the controller to its topics on b.
func (c *Controller) Attach(b bus.Bus) error {
	for _, topic := range c.Topics() {
		if err := b.Subscribe(topic, c); err != nil {
			return fmt.Errorf("%s controller: %w", c.policy.Device(), err)
		}
	}
	return nil
}

// Deliver implements bus.Subscriber.
func (c *Controller) Deliver(ev bus.Event) {
	c.queue.Push(ev)
}

// Reject implements bus.Subscriber. Malformed commands and readings leave
// the state untouched.
func (c *Controller) Reject(topic string, payload []byte, err error) {
	c.metrics.PayloadRejected(string(c.policy.Device()))
	c.logger.Warn("ignoring malformed message",
		"device", c.policy.Device(),
		"topic", topic,
		"payload", string(payload),
		"error", err,
	)
}

// Run publishes the initial status and processes queued events until ctx
// is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.publishStatus()

	var ticks <-chan time.Time
	if c.tick > 0 {
		ticker := time.NewTicker(c.tick)
		defer ticker.Stop()
		ticks = ticker.C
	}

	c.logger.Info("controller started", "device", c.policy.Device(), "tick", c.tick)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("controller stopped", "device", c.policy.Device())
			return nil
		case at := <-ticks:
			c.queue.Push(bus.TickEvent{At: at})
		case <-c.queue.Ready():
			for _, ev := range c.queue.Drain() {
				bus.Dispatch(c, ev)
			}
		}
	}
}

// HandleCommand applies an operator or coordinator command.
func (c *Controller) HandleCommand(ev bus.CommandEvent) {
	if ev.Command.Target != c.policy.Device() {
		return
	}

	c.mu.Lock()
	switch ev.Command.Verb {
	case protocol.VerbOn:
		c.relay = protocol.RelayOn
		c.mode = protocol.ModeManual
	case protocol.VerbOff:
		c.relay = protocol.RelayOff
		c.mode = protocol.ModeManual
	case protocol.VerbAuto:
		c.mode = protocol.ModeAuto
	default:
		c.mu.Unlock()
		c.logger.Warn("ignoring unknown verb", "device", c.policy.Device(), "verb", ev.Command.Verb)
		return
	}
	c.mu.Unlock()

	c.metrics.CommandApplied(string(c.policy.Device()), string(ev.Command.Verb))
	c.logger.Info("command applied", "device", c.policy.Device(), "verb", ev.Command.Verb)
	c.publishStatus()
}

// HandleReading records a sensor sample and re-evaluates the device.
func (c *Controller) HandleReading(ev bus.ReadingEvent) {
	if ev.Reading.Kind != c.policy.Metric() {
		return
	}

	c.mu.Lock()
	c.metric = ev.Reading.Value
	c.mu.Unlock()

	c.evaluate()
}

// HandleTick re-evaluates the device against the last known metric.
func (c *Controller) HandleTick(bus.TickEvent) {
	c.evaluate()
}

// evaluate applies the safety override, or the automatic rule when no
// override is needed, then publishes the status.
func (c *Controller) evaluate() {
	c.mu.Lock()
	metric := c.metric
	var overridden bool

	if c.policy.Dangerous(metric) {
		before := protocol.DeviceStatus{Mode: c.mode, State: c.relay}
		c.mode = protocol.ModeAuto
		if relay, ok := c.policy.SafetyRelay(); ok {
			c.relay = relay
		}
		overridden = before != protocol.DeviceStatus{Mode: c.mode, State: c.relay}
	} else if c.mode == protocol.ModeAuto {
		c.relay = c.policy.AutoRelay(metric, c.relay)
	}
	status := protocol.DeviceStatus{Mode: c.mode, State: c.relay}
	c.mu.Unlock()

	if overridden {
		c.raiseOverride(metric, status)
	}
	c.publishStatus()
}

func (c *Controller) raiseOverride(metric float64, status protocol.DeviceStatus) {
	text := fmt.Sprintf("Safety override: %s back to %s (%s)",
		c.policy.Device(), status, c.policy.DangerReason(metric))

	c.metrics.SafetyOverride(string(c.policy.Device()))
	c.metrics.AlarmRaised()
	c.logger.Warn("safety override", "device", c.policy.Device(), "status", status.String(), "metric", metric)

	if err := c.pub.Publish(bus.AlarmEvent{Alarm: protocol.Alarm{Text: text}}); err != nil {
		c.logger.Error("publishing alarm failed", "device", c.policy.Device(), "error", err)
	}
}

func (c *Controller) publishStatus() {
	status := c.Status()
	ev := bus.StatusEvent{Device: c.policy.Device(), Status: status}

	if err := c.pub.Publish(ev); err != nil {
		c.logger.Error("publishing status failed", "device", c.policy.Device(), "error", err)
		return
	}
	c.metrics.StatusPublished(string(c.policy.Device()))
	c.logger.Debug("status published", "device", c.policy.Device(), "status", status.String())
}
