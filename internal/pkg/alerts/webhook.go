package alerts

import (
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
)

// WebhookSink POSTs alerts as a JSON array to a URL
type WebhookSink struct {
	url  string
	http *resty.Client
}

func NewWebhookSink(url string) *WebhookSink {
	r := resty.New()
	r.SetHeader("Content-Type", "application/json")

	return &WebhookSink{
		url:  url,
		http: r,
	}
}

func (s *WebhookSink) WithTimeout(d time.Duration) *WebhookSink {
	ns := *s
	ns.http = resty.New().SetHeader("Content-Type", "application/json").SetTimeout(d)
	return &ns
}

func (s *WebhookSink) Publish(alerts []Alert) error {
	resp, err := s.http.R().SetBody(alerts).Post(s.url)
	if err != nil {
		return errors.Wrapf(err, "posting %d alerts to webhook", len(alerts))
	}

	if resp.IsError() {
		return errors.Errorf("non-2xx code from webhook %s: %d: %s", s.url, resp.StatusCode(), resp.String())
	}

	logging.Logger(nil).Debugf("delivered %d alerts to webhook", len(alerts))
	return nil
}
