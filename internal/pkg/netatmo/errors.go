package netatmo

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Vendor error codes
const (
	ErrorCodeDeviceNotFound  = 9
	ErrorCodeInvalidParams   = 21
	ErrorCodeAlreadyInState  = 31
	ErrorCodeUnknownResponse = -1
)

// APIError is an error reported by the vendor API, either as a non-2xx
// response or as an error status in a 2xx body
type APIError struct {
	HTTPStatus int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("netatmo API error: HTTP status %d, code %d: %s", e.HTTPStatus, e.Code, e.Message)
}

// IsCode reports whether err is an APIError carrying the given vendor code
func IsCode(err error, code int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}

	return false
}

func newAPIError(httpStatus int, body []byte) *APIError {
	apiErr := &APIError{
		HTTPStatus: httpStatus,
		Code:       ErrorCodeUnknownResponse,
		Message:    http.StatusText(httpStatus),
	}

	if !gjson.ValidBytes(body) {
		return apiErr
	}

	e := gjson.GetBytes(body, "error")
	switch {
	case e.IsObject():
		if code := e.Get("code"); code.Exists() {
			apiErr.Code = int(code.Int())
		}
		if msg := e.Get("message"); msg.Exists() {
			apiErr.Message = msg.String()
		}
	case e.Type == gjson.String:
		// oauth2 style: {"error": "invalid_grant"}
		apiErr.Message = e.String()
	}

	return apiErr
}

// ParseStatus extracts the status of a command response.  A response
// carrying an error object, a status of "error", or a per-module error
// list yields an *APIError.
func ParseStatus(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", errors.New("malformed status response")
	}

	status := gjson.GetBytes(body, "status").String()

	if gjson.GetBytes(body, "error").Exists() || status == "error" {
		if status == "" {
			status = "error"
		}
		return status, newAPIError(http.StatusOK, body)
	}

	if moduleErr := gjson.GetBytes(body, "body.errors.0"); moduleErr.Exists() {
		return status, &APIError{
			HTTPStatus: http.StatusOK,
			Code:       int(moduleErr.Get("code").Int()),
			Message:    fmt.Sprintf("module %s rejected the command", moduleErr.Get("id").String()),
		}
	}

	return status, nil
}
