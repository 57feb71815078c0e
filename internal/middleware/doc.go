// Package middleware wraps the converter's HTTP API.
//
//   - Logger writes one W3C Extended Log Format line per request.
//   - Metrics records request counts, durations and in-flight requests,
//     collapsing job IDs in paths so label cardinality stays bounded.
//   - Compression gzips JSON and text responses above a minimum size.
//     Converted media is already compressed and is passed through.
//
// Every wrapper exposes Unwrap so http.ResponseController can reach the
// connection for write deadlines and flushes during downloads.
package middleware
