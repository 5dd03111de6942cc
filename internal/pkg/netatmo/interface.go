package netatmo

import (
	"net/url"
	"time"
)

// API is the slice of the vendor REST API that the camera directory needs.
// Every call is a POST; the body returned is the raw JSON response.
type API interface {
	WithTimeout(d time.Duration) API
	Endpoints() Endpoints
	PostRequest(endpoint string, params url.Values) ([]byte, error)
	PostJSON(endpoint string, body interface{}) ([]byte, error)
}
