package middlewares

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// QueryServerCorsOptions allows read and command requests from the given
// origins.  No origins means any origin.
func QueryServerCorsOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Correlation-ID"},
		ExposedHeaders: []string{"X-Txn-ID", "X-Correlation-ID"},
		MaxAge:         600,
	}
}

type CorsMw struct {
	h http.Handler
}

func NewCorsMw(opts cors.Options) mux.MiddlewareFunc {
	c := cors.New(opts)

	return func(next http.Handler) http.Handler {
		return &CorsMw{h: c.Handler(next)}
	}
}

// This should be the first Middleware in the chain
//
func (mw *CorsMw) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	mw.h.ServeHTTP(rw, r)
}
