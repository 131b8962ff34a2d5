// Package logging provides structured logging for carrierd.
//
// It wraps log/slog so every component logs with the same default fields
// (service, version) and the same level filtering.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("relay").Info("connected", "broker", addr)
//
// Never log the PSK or broker credentials.
package logging
