package tokenstore

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
)

// State is the OAuth2 token of the account, persisted between runs so that
// rotated refresh tokens survive a restart
type State struct {
	ClientID string

	// non-exported
	token    *oauth2.Token
	ctx      context.Context
	fileName string
}

// Version of state that we marshal/unmarshal
type stateMarshal struct {
	ClientID          string    `json:"client-id"`
	TokenType         string    `json:"token-type,omitempty"`
	AccessToken       string    `json:"access-token"`
	AccessTokenExpiry time.Time `json:"access-token-expiry"`
	RefreshToken      string    `json:"refresh-token"`
}

func hashOf(s string) string {
	if s == "" {
		return ""
	}
	sum := sha1.Sum([]byte(s))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// obfuscate tokens when stringified
func (s State) String() string {
	tok := s.Token()
	return fmt.Sprintf("ClientID [%s], accessToken [%s], accessTokenExpiry [%s], refreshToken [%s]",
		s.ClientID, hashOf(tok.AccessToken), tok.Expiry, hashOf(tok.RefreshToken))
}

func NewState() State {
	return State{
		ctx:   context.Background(),
		token: &oauth2.Token{},
	}
}

func (s State) WithContext(ctx context.Context) State {
	s.ctx = ctx
	return s
}

// WithRefreshToken seeds the state with a refresh token, discarding any
// access token
func (s State) WithRefreshToken(refreshToken string) State {
	s.token = &oauth2.Token{RefreshToken: refreshToken}
	return s
}

// Token returns a copy of the current token
func (s State) Token() *oauth2.Token {
	if s.token == nil {
		return &oauth2.Token{}
	}
	tok := *s.token
	return &tok
}

func (s *State) Save(fileName string) error {
	tok := s.Token()
	sm := stateMarshal{
		ClientID:          s.ClientID,
		TokenType:         tok.TokenType,
		AccessToken:       tok.AccessToken,
		AccessTokenExpiry: tok.Expiry,
		RefreshToken:      tok.RefreshToken,
	}

	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.Wrapf(err, "opening token state %s for write", fileName)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(sm); err != nil {
		return errors.Wrapf(err, "saving token state to %s", fileName)
	}

	s.fileName = fileName
	return nil
}

func (s *State) save() error {
	if s.fileName != "" {
		return s.Save(s.fileName)
	}

	logging.Logger(s.ctx).Warn("cannot save token state, no file name available")
	return nil
}

func (s *State) Load(fileName string) error {
	sm := stateMarshal{}

	file, err := os.Open(fileName)
	if err != nil {
		return errors.Wrapf(err, "opening token state %s for read", fileName)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&sm); err != nil {
		return errors.Wrapf(err, "loading token state from %s", fileName)
	}

	s.ClientID = sm.ClientID
	s.token = &oauth2.Token{
		TokenType:    sm.TokenType,
		AccessToken:  sm.AccessToken,
		Expiry:       sm.AccessTokenExpiry,
		RefreshToken: sm.RefreshToken,
	}
	s.fileName = fileName

	return nil
}

// TokenSource returns a token source that refreshes through cfg and writes
// every new token back to the state file
func (s *State) TokenSource(cfg *oauth2.Config) oauth2.TokenSource {
	return &persistingSource{
		state: s,
		base:  cfg.TokenSource(s.ctx, s.Token()),
	}
}

type persistingSource struct {
	mu    sync.Mutex
	state *State
	base  oauth2.TokenSource
}

func (ps *persistingSource) Token() (*oauth2.Token, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	tok, err := ps.base.Token()
	if err != nil {
		return nil, errors.Wrap(err, "refreshing access token")
	}

	current := ps.state.Token()
	if tok.AccessToken != current.AccessToken || tok.RefreshToken != current.RefreshToken {
		saved := *tok
		ps.state.token = &saved
		if err := ps.state.save(); err != nil {
			logging.Logger(ps.state.ctx).WithError(err).Error("persisting refreshed token")
		}
	}

	return tok, nil
}
