package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsMw counts requests and observes their latency, labelled by route
// template
type MetricsMw struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	next     http.Handler
}

// NewMetricsMw registers the request metrics with reg
func NewMetricsMw(namespace string, reg prometheus.Registerer) (mux.MiddlewareFunc, error) {
	m := MetricsMw{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route, method and status code.",
		}, []string{"route", "method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return func(next http.Handler) http.Handler {
		return &MetricsMw{requests: m.requests, latency: m.latency, next: next}
	}, nil
}

func (mw *MetricsMw) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	rwex := newResponseWriterEx(r.Context(), false, rw)
	mw.next.ServeHTTP(rwex, r)

	route := "unmatched"
	if cr := mux.CurrentRoute(r); cr != nil {
		if tpl, err := cr.GetPathTemplate(); err == nil {
			route = tpl
		}
	}

	mw.requests.WithLabelValues(route, r.Method, strconv.Itoa(rwex.statusCode)).Inc()
	mw.latency.WithLabelValues(route).Observe(time.Since(startTime).Seconds())
}
