// Package database provides SQLite storage for the conversion job history.
//
// Each job row records the source (name, type, size and a content
// fingerprint), the requested output format, the latest status, progress
// and message, and where the converted output and poster were written.
//
// The database uses WAL mode so the HTTP API can read while the queue
// writes, and creates its schema on open.
package database
