package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func teapot(clock *clockwork.FakeClock) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clock.Advance(250 * time.Millisecond)
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})
}

func TestRequestLogger(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	clock := clockwork.NewFakeClock()
	rl := NewRequestLogger(teapot(clock), clock)
	r := httptest.NewRequest(http.MethodGet, "/brew", nil)
	r.Header.Set("X-Forwarded-For", "10.1.2.3")
	rl.ServeHTTP(httptest.NewRecorder(), r)

	e := hook.LastEntry()
	if e == nil {
		t.Fatal("no access log entry")
	}
	want := log.Fields{
		"status":   http.StatusTeapot,
		"method":   http.MethodGet,
		"path":     "/brew",
		"remote":   "10.1.2.3",
		"bytes":    len("short and stout"),
		"duration": 250 * time.Millisecond,
	}
	for k, v := range want {
		if e.Data[k] != v {
			t.Errorf("field %s = %v, want %v", k, e.Data[k], v)
		}
	}
}

func TestMetrics(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := prometheus.NewRegistry()
	mux := http.NewServeMux()
	mux.Handle("GET /brew/{kind}", teapot(clock))
	m, err := NewMetrics(reg, clock, mux)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"/brew/green", "/brew/black", "/nowhere"} {
		m.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "GET /brew/{kind}", "418")); got != 2 {
		t.Errorf("brew requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
	if _, err := NewMetrics(reg, clock, mux); err == nil {
		t.Errorf("registering twice succeeded")
	}
}

func TestCacheHeaderAdder(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ok"))
	})
	tests := []struct {
		name string
		env  string
		cf   CacheHeaderAdderConfig
		path string
		want string
	}{
		{name: "not found", cf: CacheHeaderAdderConfig{MaxAge: time.Minute}, path: "/missing", want: ""},
		{name: "explicitly enabled", env: "true", cf: CacheHeaderAdderConfig{}, path: "/x", want: "public"},
		{name: "public", cf: CacheHeaderAdderConfig{MaxAge: time.Minute}, path: "/x", want: "public, max-age=60"},
		{name: "private immutable", cf: CacheHeaderAdderConfig{MaxAge: time.Hour, Immutable: true, CachePrivate: true}, path: "/x", want: "private, max-age=3600, immutable"},
		{name: "maybe not", cf: CacheHeaderAdderConfig{MaxAge: time.Minute, Maybe: func(r *http.Request) bool { return r.URL.Path == "/y" }}, path: "/x", want: ""},
		{name: "disabled", env: "0", cf: CacheHeaderAdderConfig{MaxAge: time.Minute}, path: "/x", want: ""},
		{name: "unparseable", env: "yes", cf: CacheHeaderAdderConfig{MaxAge: time.Minute}, path: "/x", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("FANVEST_ENABLE_CACHING", tt.env)
			cf := tt.cf
			cf.Next = ok
			rec := httptest.NewRecorder()
			NewCacheHeaderAdder(&cf).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if got := rec.Header().Get("Cache-Control"); got != tt.want {
				t.Errorf("Cache-Control = %q, want %q", got, tt.want)
			}
		})
	}
}
