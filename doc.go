// Package main provides the entry point for the Media Converter server.
//
// Media Converter accepts audio and video uploads over HTTP and re-encodes
// them through a realtime pipeline: the source is decoded and played back
// at normal speed while a recorder captures the rendered stream into the
// requested container. Audio targets without a matching encoder fall back
// to 16-bit PCM WAV.
//
// # Application Lifecycle
//
//  1. Configuration Loading: Reads environment variables and validates directories
//  2. Database Initialization: Opens the SQLite job history
//  3. Encoder Initialization: Checks ffmpeg and lists the capture signatures it supports
//  4. Job Queue: Marks jobs left running by a previous process as interrupted
//  5. HTTP Server Setup: Registers routes and middleware, starts the API and metrics servers
//  6. Graceful Shutdown: On SIGINT/SIGTERM cancels the running conversion, kills
//     encoder processes, drains HTTP and closes the database
//
// # Background Services
//
//   - Queue worker: Runs one conversion at a time in submission order
//   - Metrics Collector: Publishes queue gauges every 15 seconds
//   - Database metrics: Refreshes the database size gauge every minute
//
// # Commands
//
// The cmd/convert tool runs the same pipeline from the command line
// without the server.
package main
