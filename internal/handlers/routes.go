package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes registers the API and probe endpoints on router.
func (h *Handlers) Routes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/convert", h.Convert).Methods(http.MethodPost).Name("convert")
	api.HandleFunc("/formats", h.ListFormats).Methods(http.MethodGet).Name("formats")
	api.HandleFunc("/jobs", h.ListJobs).Methods(http.MethodGet).Name("listJobs")
	api.HandleFunc("/jobs/{id}", h.GetJob).Methods(http.MethodGet).Name("getJob")
	api.HandleFunc("/jobs/{id}", h.DeleteJob).Methods(http.MethodDelete).Name("deleteJob")
	api.HandleFunc("/jobs/{id}/retry", h.RetryJob).Methods(http.MethodPost).Name("retryJob")
	api.HandleFunc("/jobs/{id}/download", h.DownloadJob).Methods(http.MethodGet).Name("download")
	api.HandleFunc("/jobs/{id}/poster", h.GetPoster).Methods(http.MethodGet).Name("poster")

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	router.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)
}
