package alerts

import (
	"encoding/base64"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func testAlert() Alert {
	return New(KindMotion, "91763b24c43d3e344f424e8b", "12:34:56:00:f1:62", "Hall",
		time.Date(2019, 6, 16, 0, 0, 0, 0, time.UTC))
}

func TestWebhookSink_Publish(t *testing.T) {
	t.Run("posts the alerts as json", func(t *testing.T) {
		var got []Alert

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := ioutil.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(data, &got))
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		a := testAlert()
		require.NoError(t, NewWebhookSink(srv.URL).WithTimeout(time.Second).Publish([]Alert{a}))

		require.Len(t, got, 1)
		assert.Equal(t, a.ID, got[0].ID)
		assert.Equal(t, KindMotion, got[0].Kind)
		assert.Equal(t, "Hall", got[0].CameraName)
	})

	t.Run("fails on a non-2xx response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		}))
		defer srv.Close()

		assert.Error(t, NewWebhookSink(srv.URL).Publish([]Alert{testAlert()}))
	})
}

func TestPubSubSink_Publish(t *testing.T) {
	var gotPath string
	var gotReq struct {
		Messages []struct {
			Data       string            `json:"data"`
			Attributes map[string]string `json:"attributes"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		data, err := ioutil.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &gotReq))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messageIds":["1"]}`))
	}))
	defer srv.Close()

	sink := NewPubSubSink("my-project", "camera-alerts").
		WithClientOptions(option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication()).
		WithTimeout(time.Second)

	a := testAlert()
	require.NoError(t, sink.Publish([]Alert{a}))

	assert.True(t, strings.HasSuffix(gotPath, "projects/my-project/topics/camera-alerts:publish"), gotPath)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "motion", gotReq.Messages[0].Attributes["kind"])

	decoded, err := base64.StdEncoding.DecodeString(gotReq.Messages[0].Data)
	require.NoError(t, err)

	var got Alert
	require.NoError(t, json.Unmarshal(decoded, &got))
	assert.Equal(t, a.ID, got.ID)
}
