package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"cartoonify/internal/logger"
)

// statusRecorder captures the response status. It keeps Flush and Hijack working
// so event streams and websocket upgrades pass through unchanged.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	// Po przejęciu połączenia status to 101
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// LoggingMiddleware logs method, path, status and duration of every request.
func LoggingMiddleware(logger *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start).Round(time.Millisecond)
		switch {
		case rec.status >= 500:
			logger.Error("%s %s -> %d (%v)", r.Method, r.URL.Path, rec.status, duration)
		case rec.status >= 400:
			logger.Warning("%s %s -> %d (%v)", r.Method, r.URL.Path, rec.status, duration)
		default:
			logger.Info("%s %s -> %d (%v)", r.Method, r.URL.Path, rec.status, duration)
		}
	})
}
