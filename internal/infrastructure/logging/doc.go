// Package logging provides structured logging for the aquarium binaries.
//
// It wraps log/slog with JSON or text output, level filtering and the
// default fields service and version on every entry.
//
// Configuration (config.yaml):
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, file
//	  file: ""           # path when output is file
//
// Usage:
//
//	logger, err := logging.New(cfg.Logging, "aquarium", version)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//	logger.Info("controller started", "device", "pump")
//
// Never log broker passwords or InfluxDB tokens.
package logging
