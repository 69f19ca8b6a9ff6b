/*
Package mockapi serves the content, artist, auth and investment REST API
from an in-memory catalog.  It stands in for the real backend during
development and in end-to-end tests of the client.
*/
package mockapi

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	"github.com/ts4z/fanvest/dep"
	"github.com/ts4z/fanvest/middleware"
	"github.com/ts4z/fanvest/middleware/token2ctx"
	"github.com/ts4z/fanvest/permission"
	"github.com/ts4z/fanvest/protocol"
)

// Config holds the dependencies of a Server.
type Config struct {
	Store          *Store
	Bakery         *permission.Bakery
	Clock          clockwork.Clock
	AllowedOrigins []string

	// Registry receives the HTTP metrics and backs /metrics.  A fresh
	// registry is used when nil.
	Registry *prometheus.Registry

	// OpportunityMaxAge is the Cache-Control max-age on opportunity
	// listings.  Zero means one minute.
	OpportunityMaxAge time.Duration
}

type Server struct {
	store  *Store
	bakery *permission.Bakery
	clock  clockwork.Clock

	mux     *http.ServeMux
	handler http.Handler
}

// New builds the server and its middleware stack.
func New(cf *Config) (*Server, error) {
	s := &Server{
		store:  dep.Required(cf.Store),
		bakery: dep.Required(cf.Bakery),
		clock:  dep.Required(cf.Clock),
		mux:    http.NewServeMux(),
	}

	reg := cf.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	maxAge := cf.OpportunityMaxAge
	if maxAge == 0 {
		maxAge = time.Minute
	}

	s.installHandlers(reg, maxAge)

	// Stack the handlers together.  Metrics sits directly on the mux so it
	// sees the route pattern the mux records on the request.
	metrics, err := middleware.NewMetrics(reg, s.clock, s.mux)
	if err != nil {
		return nil, fmt.Errorf("can't register metrics: %w", err)
	}
	logger := middleware.NewRequestLogger(metrics, s.clock)
	t2c := token2ctx.Handler(&token2ctx.Config{
		Bakery: s.bakery,
		Users:  s.store,
		Next:   logger,
	})
	for _, origin := range cf.AllowedOrigins {
		log.Infof("CORS allowing origin %s", origin)
	}
	corsMW := cors.New(cors.Options{
		AllowedOrigins:   cf.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{protocol.VersionHeader},
		AllowCredentials: true,
	})
	s.handler = corsMW.Handler(versionHeader(t2c))

	return s, nil
}

func versionHeader(next http.Handler) http.Handler {
	v := strconv.Itoa(protocol.Version)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(protocol.VersionHeader, v)
		next.ServeHTTP(w, r)
	})
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) handleFunc(pattern string, handler func(context.Context, http.ResponseWriter, *http.Request)) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		handler(r.Context(), w, r)
	})
}

func (s *Server) installHandlers(reg *prometheus.Registry, maxAge time.Duration) {
	s.handleFunc("GET "+protocol.TrendingContentPath, s.handleTrending)
	s.handleFunc("PUT "+protocol.LikeContentPath, s.handleLikeContent)
	s.handleFunc("PUT "+protocol.LikeArtistPath, s.handleLikeArtist)
	s.handleFunc("PUT "+protocol.FollowArtistPath, s.handleFollowArtist)
	s.handleFunc("POST "+protocol.LoginPath, s.handleLogin)

	cached := func(h func(context.Context, http.ResponseWriter, *http.Request)) http.Handler {
		return middleware.NewCacheHeaderAdder(&middleware.CacheHeaderAdderConfig{
			Next:   http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { h(r.Context(), w, r) }),
			MaxAge: maxAge,
			// Responses don't vary by caller.
			CachePrivate: false,
		})
	}
	s.mux.Handle("GET "+protocol.OpportunitiesPath, cached(s.handleOpportunities))
	s.mux.Handle("GET "+protocol.OpportunityPath, cached(s.handleOpportunity))

	s.mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	s.mux.Handle("GET /debug/vars", expvar.Handler())
	s.handleFunc("GET /healthz", func(_ context.Context, w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok\n"))
	})
	s.handleFunc("GET /robots.txt", s.handleRobotsTXT)
	s.handleFunc("/", s.handleNotFound)
}

// Wrapper to just return the input context.
func contextualizer(ctx context.Context) func(net.Listener) context.Context {
	return func(_ net.Listener) context.Context {
		return ctx
	}
}

// Serve runs the HTTP server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listenAddress string) error {
	server := &http.Server{
		Addr:         listenAddress,
		Handler:      s.handler,
		BaseContext:  contextualizer(ctx),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  5 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("serving on %s", listenAddress)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server exited: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("can't shut down cleanly: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func isAPIPath(p string) bool {
	return strings.HasPrefix(p, "/api/")
}
