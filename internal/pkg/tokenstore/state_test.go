package tokenstore

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func tempFile(t *testing.T) string {
	t.Helper()

	dir, err := ioutil.TempDir("", "tokenstore")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	return filepath.Join(dir, "token.json")
}

func TestState_SaveLoad(t *testing.T) {
	fileName := tempFile(t)
	expiry := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	s := NewState()
	s.ClientID = "client"
	s.token = &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: expiry}
	require.NoError(t, s.Save(fileName))

	info, err := os.Stat(fileName)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := NewState()
	require.NoError(t, loaded.Load(fileName))

	assert.Equal(t, "client", loaded.ClientID)
	assert.Equal(t, "access", loaded.Token().AccessToken)
	assert.Equal(t, "refresh", loaded.Token().RefreshToken)
	assert.True(t, expiry.Equal(loaded.Token().Expiry))
}

func TestState_LoadMissing(t *testing.T) {
	s := NewState()
	assert.Error(t, s.Load(filepath.Join(os.TempDir(), "does-not-exist", "token.json")))
}

func TestState_StringHidesTokens(t *testing.T) {
	s := NewState().WithRefreshToken("super-secret-refresh")
	s.ClientID = "client"

	str := s.String()
	assert.Contains(t, str, "client")
	assert.NotContains(t, str, "super-secret-refresh")
}

func TestState_TokenSourcePersistsRotatedTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","expires_in":10800,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	fileName := tempFile(t)

	s := NewState().WithRefreshToken("old-refresh")
	require.NoError(t, s.Save(fileName))

	cfg := &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	}

	tok, err := s.TokenSource(cfg).Token()
	require.NoError(t, err)
	assert.Equal(t, "new-access", tok.AccessToken)

	data, err := ioutil.ReadFile(fileName)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "new-refresh"))
}

func TestState_AuthCodeFlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "http://localhost/callback", r.PostForm.Get("redirect_uri"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access","refresh_token":"refresh","expires_in":10800,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	cfg := &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/authorize", TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	}

	u := AuthCodeURL(cfg, "http://localhost/callback", "xyz")
	assert.Contains(t, u, "redirect_uri=http%3A%2F%2Flocalhost%2Fcallback")
	assert.Contains(t, u, "state=xyz")

	fileName := tempFile(t)
	s := NewState()
	require.NoError(t, s.Save(fileName))
	require.NoError(t, s.AuthCodeFlow(cfg, "http://localhost/callback", "the-code"))

	loaded := NewState()
	require.NoError(t, loaded.Load(fileName))
	assert.Equal(t, "client", loaded.ClientID)
	assert.Equal(t, "refresh", loaded.Token().RefreshToken)

	t.Run("needs a client secret", func(t *testing.T) {
		noSecret := *cfg
		noSecret.ClientSecret = ""
		fresh := NewState()
		assert.Error(t, fresh.AuthCodeFlow(&noSecret, "http://localhost/callback", "the-code"))
	})
}

func TestState_RefreshTokenFlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "seeded", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access","refresh_token":"rotated","expires_in":10800,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	cfg := &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	}

	empty := NewState()
	assert.Error(t, empty.RefreshTokenFlow(cfg))

	fileName := tempFile(t)
	s := NewState().WithRefreshToken("seeded")
	require.NoError(t, s.Save(fileName))
	require.NoError(t, s.RefreshTokenFlow(cfg))

	loaded := NewState()
	require.NoError(t, loaded.Load(fileName))
	assert.Equal(t, "rotated", loaded.Token().RefreshToken)
	assert.Equal(t, "access", loaded.Token().AccessToken)
}
