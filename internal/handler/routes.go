package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register mounts every droplog route on mux. Any GET the API does not
// claim, including GET /{id} for both valid and malformed identifiers, lands
// on the page handler.
func Register(mux *http.ServeMux, ns *NamespaceHandler, health *HealthHandler, page http.Handler) {
	mux.HandleFunc("GET /{id}/status", ns.Status)
	mux.HandleFunc("POST /{id}/bearer", ns.IssueBearer)
	mux.HandleFunc("POST /{id}", ns.Append)
	mux.HandleFunc("GET /{id}/content", ns.List)
	mux.HandleFunc("DELETE /{id}", ns.Destroy)

	mux.HandleFunc("GET /healthz", health.Health)
	mux.HandleFunc("GET /readyz", health.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("GET /{$}", RedirectToFresh(uuid.NewString))
	mux.Handle("GET /", page)
}
