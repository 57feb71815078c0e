// Package logging provides the leveled logger used across the converter.
//
// It supports the following log levels:
//   - DEBUG: per-conversion tracing (negotiation, session transitions, releases)
//   - INFO: general operational messages
//   - WARN: recoverable problems such as release failures
//   - ERROR: failed conversions and server errors
//   - FATAL: startup errors that terminate the process
//
// The level is read once from DEBUG or LOG_LEVEL. Components that want a
// fixed prefix on every line obtain one with [With].
package logging
