package netatmo

import (
	"net/url"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) WithTimeout(d time.Duration) API {
	return m
}

func (m *MockAPI) Endpoints() Endpoints {
	return DefaultEndpoints(DefaultBaseURL)
}

func (m *MockAPI) PostRequest(endpoint string, params url.Values) ([]byte, error) {
	args := m.Called(endpoint, params)
	return bodyOf(args.Get(0)), args.Error(1)
}

func (m *MockAPI) PostJSON(endpoint string, body interface{}) ([]byte, error) {
	args := m.Called(endpoint, body)
	return bodyOf(args.Get(0)), args.Error(1)
}

func bodyOf(v interface{}) []byte {
	if v == nil {
		return nil
	}
	return v.([]byte)
}
