package middleware

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// CacheHeaderAdder sets Cache-Control on successful responses of the wrapped
// handler.  Error responses are left uncached so a 404 for an opportunity
// that appears after a catalog reload isn't pinned in someone's cache.
type CacheHeaderAdder struct {
	enabled bool
	maybe   func(r *http.Request) bool
	next    http.Handler
	value   string
}

type CacheHeaderAdderConfig struct {
	// Add cache headers, but only if this returns true.
	Maybe func(r *http.Request) bool

	Next http.Handler

	MaxAge time.Duration

	// Immutable indicates that the content will never change.
	Immutable bool

	// CachePrivate keeps shared caches out of it.
	CachePrivate bool
}

// cachingEnabled reads FANVEST_ENABLE_CACHING.  Unset means on; anything
// strconv.ParseBool can't read means off.
func cachingEnabled() bool {
	env, ok := os.LookupEnv("FANVEST_ENABLE_CACHING")
	if !ok || env == "" {
		return true
	}
	enabled, err := strconv.ParseBool(env)
	if err != nil {
		log.Warnf("can't parse FANVEST_ENABLE_CACHING=%q, caching disabled: %v", env, err)
		return false
	}
	log.Debugf("caching enabled: %v", enabled)
	return enabled
}

func cacheControl(cf *CacheHeaderAdderConfig) string {
	cc := "public"
	if cf.CachePrivate {
		cc = "private"
	}
	if s := int(cf.MaxAge.Seconds()); s > 0 {
		cc += fmt.Sprintf(", max-age=%d", s)
	}
	if cf.Immutable {
		cc += ", immutable"
	}
	return cc
}

func NewCacheHeaderAdder(cf *CacheHeaderAdderConfig) *CacheHeaderAdder {
	return &CacheHeaderAdder{
		enabled: cachingEnabled(),
		maybe:   cf.Maybe,
		next:    cf.Next,
		value:   cacheControl(cf),
	}
}

// cacheOnSuccess decides on the header when the status is known.
type cacheOnSuccess struct {
	http.ResponseWriter
	value   string
	decided bool
}

func (w *cacheOnSuccess) WriteHeader(code int) {
	if !w.decided {
		w.decided = true
		if code >= 200 && code < 300 {
			w.Header().Set("Cache-Control", w.value)
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *cacheOnSuccess) Write(b []byte) (int, error) {
	if !w.decided {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *cacheOnSuccess) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (ch *CacheHeaderAdder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !ch.enabled || (ch.maybe != nil && !ch.maybe(r)) {
		ch.next.ServeHTTP(w, r)
		return
	}
	ch.next.ServeHTTP(&cacheOnSuccess{ResponseWriter: w, value: ch.value}, r)
}
