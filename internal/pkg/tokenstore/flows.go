package tokenstore

import (
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
)

// AuthCodeURL returns the URL the account owner visits to grant access.
// The code it redirects back with is handed to AuthCodeFlow.
func AuthCodeURL(cfg *oauth2.Config, redirectURI string, state string) string {
	c := *cfg
	c.RedirectURL = redirectURI
	return c.AuthCodeURL(state)
}

// AuthCodeFlow exchanges an authorization code for a token and saves it
func (s *State) AuthCodeFlow(cfg *oauth2.Config, redirectURI string, code string) error {
	if cfg.ClientSecret == "" {
		return errors.New("no client secret, cannot execute authorization code grant")
	}

	c := *cfg
	c.RedirectURL = redirectURI

	logging.Logger(s.ctx).Debugf("exchanging authorization code at %s", c.Endpoint.TokenURL)

	tok, err := c.Exchange(s.ctx, code)
	if err != nil {
		return errors.Wrap(err, "executing authorization code grant")
	}

	s.ClientID = cfg.ClientID
	s.token = tok
	return s.save()
}

// RefreshTokenFlow obtains a fresh access token from the stored refresh
// token and saves the result
func (s *State) RefreshTokenFlow(cfg *oauth2.Config) error {
	if s.Token().RefreshToken == "" {
		return errors.New("no refresh token, run the authorization code grant first")
	}

	// an expired copy forces the refresh
	stale := s.Token()
	stale.AccessToken = ""

	tok, err := cfg.TokenSource(s.ctx, stale).Token()
	if err != nil {
		return errors.Wrap(err, "executing refresh token grant")
	}

	s.ClientID = cfg.ClientID
	s.token = tok
	return s.save()
}
