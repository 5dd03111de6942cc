package middlewares

import (
	"net/http"
	"regexp"

	"github.com/gorilla/mux"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
)

var correlationIDRegexp = regexp.MustCompile(`^[\w-]{3,64}$`)

const badCorrelationID = "<Bad_Correlation_Id>"

// CorrelationMw echoes the caller's correlation ID on the response.  When
// the caller sent none, the transaction ID of the request is used instead.
type CorrelationMw struct {
	headerName string
	next       http.Handler
}

func NewCorrelationMw(headerName string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return NewCorrelation(headerName, next)
	}
}

func NewCorrelation(headerName string, next http.Handler) *CorrelationMw {
	return &CorrelationMw{headerName: http.CanonicalHeaderKey(headerName), next: next}
}

func (mw *CorrelationMw) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if id := mw.correlationID(r); id != "" {
		rw.Header().Set(mw.headerName, id)
	}

	mw.next.ServeHTTP(rw, r)
}

func (mw *CorrelationMw) correlationID(r *http.Request) string {
	ids, ok := r.Header[mw.headerName]
	if !ok || len(ids) == 0 {
		txnID, _ := logging.TxnID(r.Context())
		return txnID
	}

	if correlationIDRegexp.MatchString(ids[0]) {
		return ids[0]
	}

	logging.Logger(r.Context()).Debugf("rejecting correlation ID %q", ids[0])
	return badCorrelationID
}
