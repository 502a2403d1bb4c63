// Package config handles loading and validating the IEC 104 bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields and channel declarations
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (MQTT, OPC UA and InfluxDB credentials) should be set
//     via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/iec104bridge.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Bridge.ID)
package config
