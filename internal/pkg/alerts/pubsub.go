package alerts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	apioption "google.golang.org/api/option"
	pubsubv1 "google.golang.org/api/pubsub/v1"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
)

// PubSubSink publishes each alert as a message on a Google Pub/Sub topic
type PubSubSink struct {
	gcpProjectID string
	topicID      string
	timeout      time.Duration
	options      []apioption.ClientOption
}

func NewPubSubSink(gcpProjectID string, topicID string) *PubSubSink {
	return &PubSubSink{
		gcpProjectID: gcpProjectID,
		topicID:      topicID,
	}
}

func (s *PubSubSink) WithServiceAccountCreds(credsFile string) *PubSubSink {
	if credsFile == "" {
		return s
	}
	return s.WithClientOptions(apioption.WithCredentialsFile(credsFile))
}

func (s *PubSubSink) WithClientOptions(opts ...apioption.ClientOption) *PubSubSink {
	ns := *s
	ns.options = append(append([]apioption.ClientOption(nil), s.options...), opts...)
	return &ns
}

func (s *PubSubSink) WithTimeout(d time.Duration) *PubSubSink {
	ns := *s
	ns.timeout = d
	return &ns
}

func (s *PubSubSink) topic() string {
	return "projects/" + s.gcpProjectID + "/topics/" + s.topicID
}

func (s *PubSubSink) makeContext() (context.Context, context.CancelFunc) {
	var ctx = context.Background()
	var cancel context.CancelFunc = func() {}
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	}

	return ctx, cancel
}

func (s *PubSubSink) Publish(alerts []Alert) error {
	ctx, cancel := s.makeContext()
	defer cancel()

	svc, err := pubsubv1.NewService(ctx, s.options...)
	if err != nil {
		return errors.Wrap(err, "initialising the pubsub api")
	}

	req := pubsubv1.PublishRequest{}
	for _, a := range alerts {
		data, err := json.Marshal(a)
		if err != nil {
			return errors.Wrap(err, "encoding alert")
		}

		req.Messages = append(req.Messages, &pubsubv1.PubsubMessage{
			Data: base64.StdEncoding.EncodeToString(data),
			Attributes: map[string]string{
				"kind":   string(a.Kind),
				"camera": a.CameraID,
				"home":   a.HomeID,
			},
		})
	}

	resp, err := svc.Projects.Topics.Publish(s.topic(), &req).Context(ctx).Do()
	if err != nil {
		return errors.Wrapf(err, "publishing %d alerts to %s", len(alerts), s.topic())
	}

	logging.Logger(nil).Debugf("published alerts to %s, message IDs %v", s.topic(), resp.MessageIds)
	return nil
}
