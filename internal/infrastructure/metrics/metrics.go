package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aquarium"

// Registry holds the aquarium metrics and the registry they are exposed from.
type Registry struct {
	registry *prometheus.Registry

	commands         *prometheus.CounterVec
	safetyOverrides  *prometheus.CounterVec
	statusPublished  *prometheus.CounterVec
	rulesFired       *prometheus.CounterVec
	alarms           prometheus.Counter
	payloadsRejected *prometheus.CounterVec
	historyWrites    *prometheus.CounterVec
}

// NewRegistry creates a registry with the aquarium counters and the Go
// runtime collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "actuator",
			Name:      "commands_total",
			Help:      "Commands applied by actuator controllers",
		}, []string{"device", "verb"}),
		safetyOverrides: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "actuator",
			Name:      "safety_overrides_total",
			Help:      "Safety overrides that changed a device's mode or relay",
		}, []string{"device"}),
		statusPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "actuator",
			Name:      "status_published_total",
			Help:      "Device status messages published",
		}, []string{"device"}),
		rulesFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "rules_fired_total",
			Help:      "Coordinator rules that produced an action",
		}, []string{"rule"}),
		alarms: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "alarms_total",
			Help:      "Alarms raised by any component",
		}),
		payloadsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "payloads_rejected_total",
			Help:      "Messages dropped because their payload could not be decoded",
		}, []string{"component"}),
		historyWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "writes_total",
			Help:      "History append attempts by outcome",
		}, []string{"result"}),
	}

	r.registry.MustRegister(
		r.commands,
		r.safetyOverrides,
		r.statusPublished,
		r.rulesFired,
		r.alarms,
		r.payloadsRejected,
		r.historyWrites,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// CommandApplied counts a command processed by a controller.
func (r *Registry) CommandApplied(device, verb string) {
	if r == nil {
		return
	}
	r.commands.WithLabelValues(device, verb).Inc()
}

// SafetyOverride counts a safety transition on a device.
func (r *Registry) SafetyOverride(device string) {
	if r == nil {
		return
	}
	r.safetyOverrides.WithLabelValues(device).Inc()
}

// StatusPublished counts a status message for a device.
func (r *Registry) StatusPublished(device string) {
	if r == nil {
		return
	}
	r.statusPublished.WithLabelValues(device).Inc()
}

// RuleFired counts a coordinator rule that produced an action.
func (r *Registry) RuleFired(rule string) {
	if r == nil {
		return
	}
	r.rulesFired.WithLabelValues(rule).Inc()
}

// AlarmRaised counts an alarm.
func (r *Registry) AlarmRaised() {
	if r == nil {
		return
	}
	r.alarms.Inc()
}

// PayloadRejected counts a malformed message seen by a component.
func (r *Registry) PayloadRejected(component string) {
	if r == nil {
		return
	}
	r.payloadsRejected.WithLabelValues(component).Inc()
}

// HistoryWrite counts a history append by outcome ("ok" or "error").
func (r *Registry) HistoryWrite(ok bool) {
	if r == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	r.historyWrites.WithLabelValues(result).Inc()
}
