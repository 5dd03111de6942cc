package netatmo

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		wantStatus string
		wantCode   int
		wantErr    bool
	}{
		{
			name:       "ok",
			body:       `{"status":"ok","time_exec":0.02,"time_server":1560000000}`,
			wantStatus: "ok",
		},
		{
			name:       "error object",
			body:       `{"error":{"code":21,"message":"Invalid parameter"}}`,
			wantStatus: "error",
			wantCode:   ErrorCodeInvalidParams,
			wantErr:    true,
		},
		{
			name:       "error status with object",
			body:       `{"status":"error","error":{"code":31,"message":"Already on"}}`,
			wantStatus: "error",
			wantCode:   ErrorCodeAlreadyInState,
			wantErr:    true,
		},
		{
			name:       "per module error",
			body:       `{"status":"ok","body":{"errors":[{"code":9,"id":"12:34:56:00:f1:ff"}]}}`,
			wantStatus: "ok",
			wantCode:   ErrorCodeDeviceNotFound,
			wantErr:    true,
		},
		{
			name:     "malformed",
			body:     `{"status":`,
			wantCode: 0,
			wantErr:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, err := ParseStatus([]byte(tc.body))
			assert.Equal(t, tc.wantStatus, status)

			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}

			assert.Error(t, err)
			if tc.wantCode != 0 {
				assert.True(t, IsCode(err, tc.wantCode), "expected code %d, got %v", tc.wantCode, err)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	err := errors.Wrap(&APIError{HTTPStatus: 400, Code: ErrorCodeAlreadyInState}, "setting state")

	assert.True(t, IsCode(err, ErrorCodeAlreadyInState))
	assert.False(t, IsCode(err, ErrorCodeInvalidParams))
	assert.False(t, IsCode(errors.New("plain"), ErrorCodeAlreadyInState))
}

func TestNewAPIError_OAuthStyle(t *testing.T) {
	err := newAPIError(400, []byte(`{"error":"invalid_grant"}`))

	assert.Equal(t, ErrorCodeUnknownResponse, err.Code)
	assert.Equal(t, "invalid_grant", err.Message)
}
