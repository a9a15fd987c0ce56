package api

import (
	"net/http"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// API routes with method-specific routing
	mux.HandleFunc("GET /api/search", s.HandleSearch)
	mux.HandleFunc("GET /api/records", s.HandleRecordBatch)
	mux.HandleFunc("GET /api/records/{id...}", s.HandleRecord)
	mux.HandleFunc("GET /api/backends", s.HandleListBackends)
	mux.HandleFunc("GET /health", s.HandleHealth)
}
