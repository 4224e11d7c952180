// Package logging provides structured logging for the cloudia binaries.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the bridge. It provides both general logging
// functions and helpers for uplink and downlink traffic.
//
// # Log Levels
//
//   - Debug: Payload dumps, feed messages, trailing-bit notices
//   - Info: Uplinks, downlinks, broker and feed connections
//   - Warn: Out-of-range values, undecodable uplinks, sink retries
//   - Error: Startup failures, lost broker connections
//
// # Silent Default
//
// Logging is off unless a level is given explicitly or through the
// CLOUDIA_LOG_LEVEL environment variable, so CLI output stays clean:
//
//	CLOUDIA_LOG_LEVEL=debug cloudia-tool decode --port 90 AHeUINLp7QI=
//
// # Configuration
//
//	if err := logging.Configure(logging.Options{Level: "info", Format: "json"}); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// # Specialized Logging
//
//	logging.LogUplink(devEUI, fport, payload)
//	logging.LogDownlink(topic, body)
//	logging.LogConnection(broker, "connected")
//	logging.LogRawBytes("frm_payload", payload)
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once initialized.
// Initialize and SetLogger are meant to be called once at startup.
package logging
