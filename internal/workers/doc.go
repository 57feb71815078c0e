/*
Package workers sizes the encoder thread count passed to ffmpeg.

Conversions run one at a time, so the encoder may use every CPU the
process is allowed. The count is derived from GOMAXPROCS, which Go sets
from the container CPU quota, rather than runtime.NumCPU, which reports
host CPUs:

	threads := workers.ForEncoder() // ffmpeg -threads value

Operators can pin the value with the CONVERT_THREADS environment variable:

	env:
	- name: CONVERT_THREADS
	  value: "2"

Invalid or non-positive overrides are ignored.
*/
package workers
