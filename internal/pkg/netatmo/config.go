package netatmo

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const DefaultBaseURL = "https://api.netatmo.com"

var DefaultScopes = []string{
	"read_camera", "write_camera", "access_camera",
	"read_presence", "write_presence", "access_presence",
	"read_smokedetector",
}

// Config describes how to reach and authenticate against the vendor API
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Timeout      time.Duration
}

// Endpoints holds the full URL of every call the client makes.  Build one
// with DefaultEndpoints and override fields to point at another server.
type Endpoints struct {
	HomeData       string
	SetPersonsAway string
	SetPersonsHome string
	SetState       string
	CameraPicture  string
	Authorize      string
	Token          string
}

func DefaultEndpoints(baseURL string) Endpoints {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	return Endpoints{
		HomeData:       baseURL + "/api/gethomedata",
		SetPersonsAway: baseURL + "/api/setpersonsaway",
		SetPersonsHome: baseURL + "/api/setpersonshome",
		SetState:       baseURL + "/api/setstate",
		CameraPicture:  baseURL + "/api/getcamerapicture",
		Authorize:      baseURL + "/oauth2/authorize",
		Token:          baseURL + "/oauth2/token",
	}
}

// PingURL is the reachability probe for a camera VPN or local URL
func PingURL(cameraURL string) string {
	return strings.TrimSuffix(cameraURL, "/") + "/command/ping"
}

// OAuthConfig returns the oauth2 client configuration for the vendor token endpoint
func OAuthConfig(cfg Config) *oauth2.Config {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	endpoints := DefaultEndpoints(cfg.BaseURL)

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   endpoints.Authorize,
			TokenURL:  endpoints.Token,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
