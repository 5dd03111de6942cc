package netatmo

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
	"github.com/jake-scott/netatmo-cameras/version"
)

type Live struct {
	endpoints Endpoints
	tokens    oauth2.TokenSource
	timeout   time.Duration
	http      *resty.Client
}

func NewLiveClient(cfg Config) *Live {
	r := resty.New()
	r.SetHeader("Accept", "application/json")
	r.SetHeader("User-Agent", version.UserAgent())

	return &Live{
		endpoints: DefaultEndpoints(cfg.BaseURL),
		timeout:   cfg.Timeout,
		http:      r,
	}
}

func (c *Live) WithTimeout(d time.Duration) API {
	nc := *c
	nc.timeout = d
	return &nc
}

func (c *Live) WithTokenSource(ts oauth2.TokenSource) *Live {
	nc := *c
	nc.tokens = ts
	return &nc
}

func (c *Live) WithEndpoints(e Endpoints) *Live {
	nc := *c
	nc.endpoints = e
	return &nc
}

func (c *Live) Endpoints() Endpoints {
	return c.endpoints
}

func (c *Live) MakeContext() (context.Context, context.CancelFunc) {
	var ctx = context.Background()
	var cancel context.CancelFunc = func() {}
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), c.timeout)
	}

	return ctx, cancel
}

// onAPIHost reports whether endpoint is served by the vendor API rather
// than by a camera
func (c *Live) onAPIHost(endpoint string) bool {
	api, err := url.Parse(c.endpoints.HomeData)
	if err != nil {
		return false
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return false
	}

	return strings.EqualFold(u.Host, api.Host)
}

// newRequest only attaches the access token for calls to the vendor API
func (c *Live) newRequest(ctx context.Context, endpoint string) (*resty.Request, error) {
	req := c.http.R().SetContext(ctx)

	if c.tokens != nil && c.onAPIHost(endpoint) {
		tok, err := c.tokens.Token()
		if err != nil {
			return nil, errors.Wrap(err, "fetching access token")
		}
		req.SetAuthToken(tok.AccessToken)
	}

	return req, nil
}

func (c *Live) PostRequest(endpoint string, params url.Values) ([]byte, error) {
	ctx, cancel := c.MakeContext()
	defer cancel()

	req, err := c.newRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	if len(params) > 0 {
		req.SetFormDataFromValues(params)
	}

	logging.Logger(nil).Debugf("POST %s, params %s", endpoint, params.Encode())

	resp, err := req.Post(endpoint)
	return c.readResponse(endpoint, resp, err)
}

func (c *Live) PostJSON(endpoint string, body interface{}) ([]byte, error) {
	ctx, cancel := c.MakeContext()
	defer cancel()

	req, err := c.newRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	req.SetHeader("Content-Type", "application/json").SetBody(body)

	logging.Logger(nil).Debugf("POST %s, json body %+v", endpoint, body)

	resp, err := req.Post(endpoint)
	return c.readResponse(endpoint, resp, err)
}

func (c *Live) readResponse(endpoint string, resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, errors.Wrapf(err, "posting to %s", endpoint)
	}

	body := resp.Body()
	logging.Logger(nil).Debugf("response from %s: HTTP status %d, %d bytes", endpoint, resp.StatusCode(), len(body))

	if resp.IsError() {
		return nil, newAPIError(resp.StatusCode(), body)
	}

	return body, nil
}
