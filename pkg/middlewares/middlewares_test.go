package middlewares

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
)

func newRouter(t *testing.T, reg prometheus.Registerer) *mux.Router {
	t.Helper()

	metricsMw, err := NewMetricsMw("test", reg)
	require.NoError(t, err)

	r := mux.NewRouter()
	r.Use(NewCorsMw(QueryServerCorsOptions(nil)))
	r.Use(NewLoggingMw(true))
	r.Use(NewRecoveryMw())
	r.Use(NewCorrelationMw("X-Correlation-ID"))
	r.Use(metricsMw)

	r.HandleFunc("/cameras/{id}", func(w http.ResponseWriter, r *http.Request) {
		txnID, ok := logging.TxnID(r.Context())
		assert.True(t, ok)
		assert.NotEmpty(t, txnID)
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)

	r.HandleFunc("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}).Methods(http.MethodGet)

	return r
}

func TestMiddlewares(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := newRouter(t, reg)

	t.Run("transaction ID doubles as correlation ID", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cameras/12:34:56:00:f1:62", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(TxnIDHeader))
		assert.Equal(t, rec.Header().Get(TxnIDHeader), rec.Header().Get("X-Correlation-ID"))
	})

	t.Run("caller correlation ID is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cameras/12:34:56:00:f1:62", nil)
		req.Header.Set("X-Correlation-ID", "abc-123")

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", rec.Header().Get("X-Correlation-ID"))
	})

	t.Run("bad correlation ID is replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cameras/12:34:56:00:f1:62", nil)
		req.Header.Set("X-Correlation-ID", "no spaces allowed")

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, badCorrelationID, rec.Header().Get("X-Correlation-ID"))
	})

	t.Run("panics become a json 500", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.True(t, strings.Contains(rec.Body.String(), `"error"`))
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/cameras/12:34:56:00:f1:62", nil)
		req.Header.Set("Origin", "https://example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)

		rec := httptest.NewRecorder()
		NewCorsMw(QueryServerCorsOptions(nil))(http.NotFoundHandler()).ServeHTTP(rec, req)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("requests are counted by route", func(t *testing.T) {
		assert.Equal(t, float64(3), requestCount(t, reg, "/cameras/{id}"))
	})
}

func requestCount(t *testing.T, reg *prometheus.Registry, route string) float64 {
	t.Helper()

	mfs, err := reg.Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range mfs {
		if mf.GetName() != "test_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "route" && lp.GetValue() == route {
					total += m.GetCounter().GetValue()
				}
			}
		}
	}

	return total
}
