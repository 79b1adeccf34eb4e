// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// statusRecorder wraps http.ResponseWriter so middleware can see the status
// code and body size after the handler runs.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.written += n
	return n, err
}

// RequestLogger logs completed requests. In non-verbose mode only 4xx and
// 5xx responses are logged. Each request gets a short ID, echoed in the
// X-Request-ID header so clients can quote it in bug reports.
func RequestLogger(verbose bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := uuid.New().String()[:8]
			w.Header().Set("X-Request-ID", reqID)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)

			if verbose || rec.status >= 400 {
				log.Printf("[%s] %s %s %d %d %v",
					reqID, r.Method, r.URL.Path, rec.status, rec.written, time.Since(start))
			}
		})
	}
}
