package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Processors
	mux.Handle("GET /api/v1/processors", chain(http.HandlerFunc(h.ListProcessors)))
	mux.Handle("GET /api/v1/processors/{name}", chain(http.HandlerFunc(h.GetProcessor)))
	mux.Handle("POST /api/v1/processors/{name}/activate", chain(http.HandlerFunc(h.ActivateProcessor)))
	mux.Handle("POST /api/v1/processors/{name}/deactivate", chain(http.HandlerFunc(h.DeactivateProcessor)))

	// Stores
	mux.Handle("GET /api/v1/stores", chain(http.HandlerFunc(h.ListStores)))
	mux.Handle("GET /api/v1/stores/{name}", chain(http.HandlerFunc(h.GetStore)))
	mux.Handle("POST /api/v1/stores/{name}/messages", chain(http.HandlerFunc(h.EnqueueMessage)))
}
