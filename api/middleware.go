package api

import (
	"net/http"
	"time"

	"AcevalImport/internal/constants"
	"AcevalImport/internal/logger"
)

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps event streams working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// auditRequests writes one audit line per request with its status and latency.
func auditRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := r.RemoteAddr
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			clientIP = xff
		}
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Audit("%s %s from %s status %d in %s", r.Method, r.URL.Path, clientIP, rw.statusCode, time.Since(start).Round(time.Millisecond))
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	logger.Audit("%s from %s (route not found)", r.URL.Path, r.RemoteAddr)
	RespondWithError(w, http.StatusNotFound, "404 - Route not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed+": "+r.Method+" "+r.URL.Path)
}
