package api

import (
	"embed"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shehryarbajwa/deckard-mini/internal/proxy"
	"github.com/shehryarbajwa/deckard-mini/internal/ratelimit"
)

//go:embed resources
var resources embed.FS

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes(catalogHandler *CatalogHandler, proxyServer *proxy.Server, rateLimiter *ratelimit.Limiter) *mux.Router {
	r := mux.NewRouter()

	// API v1 routes
	api := r.PathPrefix("/v1").Subrouter()

	// Operator actions reach the upstream, so they are rate limited
	rateLimitedAPI := api.PathPrefix("").Subrouter()
	rateLimitedAPI.Use(RateLimitMiddleware(rateLimiter, h.trusted))

	rateLimitedAPI.HandleFunc("/tabs", h.CreateTab).Methods("POST", "OPTIONS")
	rateLimitedAPI.HandleFunc("/tabs/{id}/upload", h.UploadTab).Methods("POST", "OPTIONS")
	rateLimitedAPI.HandleFunc("/tabs/{id}/spawn", h.SpawnTab).Methods("POST", "OPTIONS")

	// Tab state (not rate limited)
	api.HandleFunc("/tabs", h.ListTabs).Methods("GET")
	api.HandleFunc("/tabs/{id}", h.GetTab).Methods("GET")
	api.HandleFunc("/tabs/{id}", h.DeleteTab).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/tabs/{id}/ws", h.StreamTab).Methods("GET")
	api.HandleFunc("/tabs/{id}/select", h.SelectTab).Methods("POST", "OPTIONS")
	api.HandleFunc("/tabs/{id}/abort", h.AbortTab).Methods("POST", "OPTIONS")
	api.HandleFunc("/tabs/{id}/share", h.ShareTab).Methods("GET")

	// Catalog endpoint
	api.HandleFunc("/catalog", catalogHandler.GetCatalog).Methods("GET")

	// Waiting placeholder shown while a process starts
	r.PathPrefix("/resources/").Handler(http.FileServer(http.FS(resources)))

	// Remote views, same origin as the console
	r.PathPrefix("/{port:[0-9]+}/").Handler(proxyServer)

	r.Use(loggingMiddleware)
	// CORS middleware
	r.Use(corsMiddleware)

	return r
}
