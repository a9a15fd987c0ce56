package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/rubiojr/meld/pkg/blend"
	"github.com/rubiojr/meld/pkg/log"
)

type Server struct {
	mu      sync.RWMutex
	blender *blend.Backend
	logger  *log.Logger
}

func NewServer(blender *blend.Backend) *Server {
	return &Server{
		blender: blender,
		logger:  log.ForComponent("api"),
	}
}

// SetBlender swaps the blend backend serving requests. Used by config
// reloads; in-flight requests keep the instance they started with.
func (s *Server) SetBlender(blender *blend.Backend) {
	s.mu.Lock()
	s.blender = blender
	s.mu.Unlock()
}

func (s *Server) blend() *blend.Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blender
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequestIDMiddleware tags every response with an X-Request-Id, honoring
// one supplied by the caller so ids survive proxy hops.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		next.ServeHTTP(w, r)
	})
}
