// Package jobs runs conversions one at a time.
//
// A Queue accepts uploaded sources, records a job for each in the store and
// hands them to a single worker goroutine in submission order. Conversions
// share the host decoder and encoder, so only one is ever in flight; the
// rest wait as pending. Progress and status messages reported by the
// converter are written back to the job as they arrive.
//
// Source bytes are held in memory until the job completes, which is what
// makes a failed job retryable. After a restart only the history remains:
// jobs that were pending or processing when the process stopped are marked
// as failed by Recover.
package jobs
