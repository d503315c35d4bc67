package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs every request and records it in the request metrics.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.metrics.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", elapsed,
		)
	})
}

// requirePermission lets the request through only when its bearer token
// belongs to a user holding every permission in names.
func (s *Server) requirePermission(next http.Handler, names ...string) http.Handler {
	if len(names) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.users.AssertHasPermission(r.Context(), r.Header.Get(common.AuthorizationHeaderName), names...); err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
