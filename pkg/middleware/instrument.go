package middleware

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"portalgate/pkg/metrics"
)

// Instrument records request count and latency per route. With debug on it
// also logs a stack when a handler writes the header twice.
func Instrument(log *zap.SugaredLogger, debugWrites bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}
			if debugWrites {
				sw.onDouble = func(first, second int) {
					log.Warnw("double WriteHeader", "method", r.Method, "path", r.URL.Path, "first", first, "second", second, "stack", string(debug.Stack()))
				}
			}
			next.ServeHTTP(sw, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			metrics.ObserveHTTPRequest(r.Method, route, strconv.Itoa(sw.status()), time.Since(start))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	code     int
	onDouble func(first, second int)
}

func (s *statusWriter) WriteHeader(code int) {
	if s.code != 0 {
		if s.onDouble != nil {
			s.onDouble(s.code, code)
		}
		return
	}
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	if s.code == 0 {
		s.WriteHeader(http.StatusOK)
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusWriter) status() int {
	if s.code == 0 {
		return http.StatusOK
	}
	return s.code
}

func (s *statusWriter) Unwrap() http.ResponseWriter { return s.ResponseWriter }
