// Package memory sizes the Go heap for the container and refuses uploads
// that would push it past its limit.
//
// Uploaded sources are held in memory from submission until their job
// completes, so a burst of large uploads can exhaust a container long
// before the encoder becomes the bottleneck. The package provides two
// pieces:
//
//   - ConfigureFromEnv sets GOMEMLIMIT from the container memory limit
//     (MEMORY_LIMIT, scaled by MEMORY_RATIO) when GOMEMLIMIT itself is
//     not set. Call it first thing in main.
//   - Monitor samples heap usage and answers Admit for each upload. An
//     upload is refused with ErrPressure when the heap plus the upload
//     would exceed the critical watermark. Above the high watermark the
//     monitor forces a collection and returns freed pages to the OS.
//
// With no limit configured Admit always succeeds.
package memory
