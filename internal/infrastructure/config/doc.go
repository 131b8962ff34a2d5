// Package config handles loading and validating carrierd configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with CARRIER_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Limits on the carrier init parameters themselves (URI length, PSK
// encoding, APN length) are enforced by the carrier package when the
// registry is built, so a file that loads here can still be rejected at
// startup.
//
// Security Considerations:
//   - The PSK, MQTT password and InfluxDB token should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/carrierd.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Carrier.ServerURI)
package config
