// Package capture defines the capture sink contract and the single-use
// session that drives it.
//
// A [Recorder] is a live encoder: a producer writes raw media into it while
// it emits encoded chunks as [Event] values. A [Session] binds one Recorder
// for one conversion and walks Idle → Recording → Stopping → Closed exactly
// once. It collects the chunks, surfaces sink errors, and treats a stop
// with no captured data as a failure.
package capture
