package netatmo

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestLive_PostRequest(t *testing.T) {
	t.Run("sends form parameters with the bearer token", func(t *testing.T) {
		var gotAuth string
		var gotForm url.Values

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/setpersonsaway", r.URL.Path)

			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, r.ParseForm())
			gotForm = r.PostForm

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		}))
		defer srv.Close()

		c := NewLiveClient(Config{BaseURL: srv.URL}).
			WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "secret-token"}))

		params := url.Values{}
		params.Set("home_id", "91763b24c43d3e344f424e8b")
		params.Set("person_id", "91827374-7e04-5298-83ad-a0cb8372dff1")

		body, err := c.PostRequest(c.Endpoints().SetPersonsAway, params)
		require.NoError(t, err)

		assert.JSONEq(t, `{"status":"ok"}`, string(body))
		assert.Equal(t, "Bearer secret-token", gotAuth)
		assert.Equal(t, "91763b24c43d3e344f424e8b", gotForm.Get("home_id"))
		assert.Equal(t, "91827374-7e04-5298-83ad-a0cb8372dff1", gotForm.Get("person_id"))
	})

	t.Run("does not send the bearer token to cameras", func(t *testing.T) {
		var apiAuth, cameraAuth string

		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		}))
		defer api.Close()

		cam := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/abc/command/ping", r.URL.Path)
			cameraAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"local_url":"http://192.168.0.123/abc"}`))
		}))
		defer cam.Close()

		c := NewLiveClient(Config{BaseURL: api.URL}).
			WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "secret-token"}))

		_, err := c.PostRequest(PingURL(cam.URL+"/abc"), nil)
		require.NoError(t, err)
		assert.Equal(t, "", cameraAuth)

		_, err = c.PostRequest(c.Endpoints().HomeData, nil)
		require.NoError(t, err)
		assert.Equal(t, "Bearer secret-token", apiAuth)
	})

	t.Run("returns an APIError for a non-2xx response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":9,"message":"Device not found"}}`))
		}))
		defer srv.Close()

		c := NewLiveClient(Config{BaseURL: srv.URL})

		_, err := c.PostRequest(c.Endpoints().HomeData, nil)
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.HTTPStatus)
		assert.Equal(t, ErrorCodeDeviceNotFound, apiErr.Code)
		assert.Equal(t, "Device not found", apiErr.Message)
	})

	t.Run("times out against a slow server", func(t *testing.T) {
		done := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-done:
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()
		defer close(done)

		c := NewLiveClient(Config{BaseURL: srv.URL}).WithTimeout(50 * time.Millisecond)

		_, err := c.PostRequest(PingURL(srv.URL), nil)
		assert.Error(t, err)
	})
}

func TestLive_PostJSON(t *testing.T) {
	var got map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		data, err := ioutil.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &got))

		_, _ = w.Write([]byte(`{"status":"ok","time_server":1582932399}`))
	}))
	defer srv.Close()

	c := NewLiveClient(Config{BaseURL: srv.URL})

	body := map[string]interface{}{
		"home": map[string]interface{}{
			"id": "91763b24c43d3e344f424e8b",
		},
	}

	resp, err := c.PostJSON(c.Endpoints().SetState, body)
	require.NoError(t, err)

	status, err := ParseStatus(resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", status)
	assert.Equal(t, "91763b24c43d3e344f424e8b", got["home"].(map[string]interface{})["id"])
}

func TestLive_WithTimeoutCopies(t *testing.T) {
	c := NewLiveClient(Config{Timeout: time.Second})
	short := c.WithTimeout(time.Millisecond)

	assert.Equal(t, time.Second, c.timeout)
	assert.Equal(t, time.Millisecond, short.(*Live).timeout)
}

func TestDefaultEndpoints(t *testing.T) {
	e := DefaultEndpoints("")
	assert.Equal(t, "https://api.netatmo.com/api/gethomedata", e.HomeData)
	assert.Equal(t, "https://api.netatmo.com/oauth2/token", e.Token)

	e = DefaultEndpoints("http://localhost:8080/")
	assert.Equal(t, "http://localhost:8080/api/setstate", e.SetState)

	assert.Equal(t, "http://192.168.0.123/abc/command/ping", PingURL("http://192.168.0.123/abc/"))
}
