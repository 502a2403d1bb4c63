// Package logging provides structured logging for the IEC 104 bridge.
//
// It wraps log/slog so every component logs with the same service and
// version attributes. Components depend on small Logger interfaces
// (Debug/Info/Warn/Error) that *Logger satisfies.
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Component("forwarder").Info("IEC 104 forwarding started")
//
// Never log MQTT, OPC UA or InfluxDB credentials.
package logging
