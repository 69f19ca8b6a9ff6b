package middleware

import (
	"net/http"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

// RequestLogger is a middleware that writes an access log line per request.
type RequestLogger struct {
	next  http.Handler
	clock clockwork.Clock
}

func NewRequestLogger(next http.Handler, clock clockwork.Clock) *RequestLogger {
	return &RequestLogger{next: next, clock: clock}
}

func remoteAddr(r *http.Request) string {
	if r.Header.Get("X-Forwarded-For") != "" {
		return r.Header.Get("X-Forwarded-For")
	}
	return r.RemoteAddr
}

func (rl *RequestLogger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := rl.clock.Now()
	ww := watch(w)
	rl.next.ServeHTTP(ww, r)
	log.WithFields(log.Fields{
		"status":   ww.Code(),
		"method":   r.Method,
		"path":     r.URL.Path,
		"remote":   remoteAddr(r),
		"bytes":    ww.bytes,
		"duration": rl.clock.Since(start),
	}).Info("access")
}
