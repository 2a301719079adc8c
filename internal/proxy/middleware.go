package proxy

import (
	"net/http"
	"runtime/debug"
	"time"

	log "github.com/sirupsen/logrus"

	apierrors "github.com/zhengjr9/gemini-gateway/internal/errors"
	"github.com/zhengjr9/gemini-gateway/internal/httputil"
)

// requestIDMiddleware tags every request with an id, echoed in X-Request-ID.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, httputil.EnsureRequestID(w, r))
	})
}

// loggingMiddleware logs each request with method, path, status, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.WithFields(log.Fields{
			"request_id": httputil.RequestID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"origin":     r.Header.Get("Origin"),
			"status":     lrw.statusCode,
			"duration":   time.Since(start).String(),
			"remote":     r.RemoteAddr,
		}).Info("request")
	})
}

// recoveryMiddleware catches panics and returns a 500.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(log.Fields{
					"request_id": httputil.RequestID(r.Context()),
					"error":      rec,
					"stack":      string(debug.Stack()),
				}).Error("panic recovered")
				apierrors.WriteJSONError(w, http.StatusInternalServerError, "Proxy failure")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// loggingResponseWriter captures the status code written by the handler.
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
