// Package logging provides structured logging for ledbench and ledbench-sim.
//
// This package wraps a global zap logger with convenience functions for the
// patterns used throughout the harness: outbound controller requests,
// received broadcast datagrams and simulator connections.
//
// # Silent by Default
//
// CLI output is curated by the ui package, so logging is off unless a level
// is requested with --log-level:
//
//	if err := logging.Initialize(logLevel); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// The TUI redirects log output to a file with InitializeWithOutput so that
// log lines never draw over the alternate screen.
//
// # Log Levels
//
//   - Debug: request/response detail, datagram hex dumps
//   - Info: failed requests, listener and simulator lifecycle
//   - Warn: duplicate starts, recoverable socket problems
//   - Error: startup failures
//
// # Components
//
// Packages hold a named child logger (logging.Named("discovery")) so each
// line says where it came from.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once Initialize has
// returned.
package logging
