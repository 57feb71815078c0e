/*
Package filesystem opens, stats and removes converted outputs with a retry
on NFS stale file handle errors.

The output directory is commonly a network volume shared with whatever
collects the results. A file written by the queue and immediately read back
by a download can hit ESTALE while the client's attribute cache catches up;
those operations are retried with exponential backoff. Every other error is
returned on the first attempt.

# Usage

	f, err := filesystem.Open(path, filesystem.DefaultRetryConfig())
	if err != nil {
	    return err
	}
	defer f.Close()

Remove treats a missing file as success, so cleanup can be repeated.

# Metrics

Retries are reported through the Observer set with SetObserver; the
metrics package provides the Prometheus implementation. With no observer
set nothing is recorded.
*/
package filesystem
