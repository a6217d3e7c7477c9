package httpserver

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// unmatchedRoute labels requests that reached no route, keeping metric cardinality bounded.
const unmatchedRoute = "unmatched"

// observe logs each API request and records it under its route template.
func (s *Server) observe(next http.Handler) http.Handler {
	return s.instrument(next, "")
}

// instrument records next under route, or under the matched route template when route is empty.
func (s *Server) instrument(next http.Handler, route string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := route
		if route == "" {
			route = r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
		}
		elapsed := time.Since(start)
		if s.metrics != nil {
			s.metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			s.metrics.HTTPLatency.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		}

		level := s.logger.Debug
		if rec.status >= http.StatusInternalServerError {
			level = s.logger.Warn
		}
		level("http request", "method", r.Method, "route", route, "status", rec.status, "duration", elapsed)
	})
}

// recoverer turns handler panics into a JSON 500.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.logger.Error("panic serving request", "method", r.Method, "path", r.URL.Path, "panic", v, "stack", string(debug.Stack()))
				if s.metrics != nil {
					s.metrics.Errors.WithLabelValues("http").Inc()
				}
				writeError(w, http.StatusInternalServerError, fmt.Sprint(v))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
