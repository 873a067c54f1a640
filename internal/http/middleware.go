package httpserver

import (
	"net/http"
	"strconv"

	"rentaldesk/internal/monitoring"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// WithMetrics counts requests by path and status class. Websocket upgrades
// bypass the recorder because hijacked connections never report a status.
func WithMetrics(metrics *monitoring.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		class := strconv.Itoa(sw.status/100) + "xx"
		metrics.RequestsTotal.WithLabelValues(r.URL.Path, class).Inc()
	})
}
