package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/sensord/internal/stream"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Resource paths match case-insensitively.
	r.Use(lowercasePathMiddleware)
	r.Use(s.recoveryMiddleware)

	// Streaming endpoints
	r.Get("/sensor/connect", s.handleSensorConnect)
	r.Get("/sensors/connect", s.handleSensorsConnect)
	r.Get("/gps", s.handleGPS)
	r.Get("/touchscreen", s.handleTouchscreen)

	// Discovery endpoints
	r.Get("/sensors", s.handleListSensors)
	r.Get("/health", s.handleHealth)

	r.NotFound(s.handleUnknownPath)

	return r
}

// lowercasePathMiddleware folds the request path to lower case before
// route matching.
func lowercasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Path = strings.ToLower(r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware converts handler panics into a 500 response.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panic", "path", r.URL.Path, "panic", rec)
				writeInternalError(w, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// handleSensorConnect serves single-capability streaming connections.
func (s *Server) handleSensorConnect(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	s.handleStream(w, r, func() (stream.Attachment, *closeError) {
		return s.resolveSingle(query)
	})
}

// handleSensorsConnect serves multi-capability streaming connections.
func (s *Server) handleSensorsConnect(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	s.handleStream(w, r, func() (stream.Attachment, *closeError) {
		return s.resolveList(query)
	})
}

// handleGPS serves location streaming connections.
func (s *Server) handleGPS(w http.ResponseWriter, r *http.Request) {
	s.handleStream(w, r, func() (stream.Attachment, *closeError) {
		return stream.Location(), nil
	})
}

// handleTouchscreen serves touch-broadcast connections.
func (s *Server) handleTouchscreen(w http.ResponseWriter, r *http.Request) {
	s.handleStream(w, r, func() (stream.Attachment, *closeError) {
		return stream.Touch(), nil
	})
}

// handleUnknownPath rejects unknown paths. WebSocket upgrade attempts get
// the application close code; plain HTTP requests get a 404.
func (s *Server) handleUnknownPath(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		writeNotFound(w, "unknown path: "+r.URL.Path)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err, "path", r.URL.Path)
		return
	}
	s.logger.Info("connection rejected",
		"path", r.URL.Path, "code", CloseUnsupportedRequest, "remote", r.RemoteAddr)
	closeWith(conn, CloseUnsupportedRequest, "unsupported request path")
}

// handleListSensors returns every available capability as JSON.
func (s *Server) handleListSensors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.source.List())
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"version":     s.version,
		"connections": s.registry.ConnectionCount(),
	})
}
