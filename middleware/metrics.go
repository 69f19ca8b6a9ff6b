package middleware

import (
	"net/http"
	"strconv"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts requests and observes their latency by route pattern.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	clock           clockwork.Clock
	next            http.Handler
}

// NewMetrics registers its collectors with reg.
func NewMetrics(reg prometheus.Registerer, clock clockwork.Clock, next http.Handler) (*Metrics, error) {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fanvest",
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fanvest",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latencies by method and route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		clock: clock,
		next:  next,
	}
	for _, c := range []prometheus.Collector{m.requestsTotal, m.requestDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := m.clock.Now()
	ww := watch(w)
	m.next.ServeHTTP(ww, r)

	// The mux fills in r.Pattern on the request it routes, which is this
	// same *http.Request when the mux is downstream of us.
	route := r.Pattern
	if route == "" {
		route = "unmatched"
	}
	m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Code())).Inc()
	m.requestDuration.WithLabelValues(r.Method, route).Observe(m.clock.Since(start).Seconds())
}
