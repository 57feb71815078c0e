// Package handlers implements the converter's HTTP API.
//
// Uploads are accepted as multipart forms and queued; conversion happens in
// the background and clients poll the job until it completes, then fetch
// the output (and, for video, a poster frame). Failed jobs report their
// error class, which the download endpoint maps to a status code:
// undecodable sources are 422, missing encoder support is 415 and anything
// else is 500.
//
// Routes:
//
//	POST   /api/convert?format=MP3    multipart "file" field, 202 + job
//	GET    /api/jobs                  newest first, ?limit=N
//	GET    /api/jobs/{id}
//	DELETE /api/jobs/{id}
//	POST   /api/jobs/{id}/retry
//	GET    /api/jobs/{id}/download
//	GET    /api/jobs/{id}/poster
//	GET    /api/formats
//	GET    /health, /healthz, /livez, /readyz, /version
package handlers
