// Package config loads and validates the aquarium core configuration.
//
// Values come from built-in defaults, then a YAML file, then AQUARIUM_*
// environment variables. Broker passwords and InfluxDB tokens belong in the
// environment, not the file.
//
// Usage:
//
//	cfg, err := config.Load(config.PathFromEnv())
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Site.Name)
//
// Rule thresholds are compiled into the actuator and coordinator packages;
// only the loop cadence and which loops run are configurable.
package config
