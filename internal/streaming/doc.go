/*
Package streaming sends converted files to HTTP clients.

Converted outputs can be large and clients can be slow or vanish midway.
Writer copies a response in fixed-size chunks and pushes the connection's
write deadline forward before each one, so a stalled client is cut off after
WriteTimeout instead of pinning a handler goroutine. A canceled request
context stops the copy with ErrClientGone.

ServeFile adds the download headers (Content-Type, Content-Length and an
attachment Content-Disposition carrying the output name) and streams a file
from disk:

	err := streaming.ServeFile(r.Context(), w, job.OutputPath, job.OutputName, job.OutputMIME,
		streaming.DefaultConfig())
	if err != nil && !errors.Is(err, streaming.ErrClientGone) {
		logging.Warn("Download failed: %v", err)
	}

Errors returned before any byte was written (a missing file, for example)
leave the response untouched so the caller can still send an error status.
*/
package streaming
