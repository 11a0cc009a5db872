// Package metrics exposes Prometheus counters for the aquarium control loops.
//
// A Registry owns a private prometheus.Registry with the Go runtime and
// process collectors plus the aquarium counters. All recording methods are
// safe to call on a nil *Registry, so components can run uninstrumented in
// tests.
//
// Usage:
//
//	reg := metrics.NewRegistry()
//	pump.SetMetrics(reg)
//	router.Handle("/metrics", reg.Handler())
package metrics
