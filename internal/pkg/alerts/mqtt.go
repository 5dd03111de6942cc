package alerts

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
)

const defaultMQTTTimeout = 10 * time.Second

// MQTTSink publishes each alert to <prefix>/<camera>/<kind>
type MQTTSink struct {
	client   pahomqtt.Client
	prefix   string
	qos      byte
	retained bool
	timeout  time.Duration
}

type MQTTOptions struct {
	Server   string
	ClientID string
	Username string
	Password string
	Prefix   string
	QOS      byte
	Retained bool
}

// NewMQTTSink connects to the broker, which keeps reconnecting in the
// background after a connection loss
func NewMQTTSink(opts MQTTOptions) (*MQTTSink, error) {
	clientOptions := pahomqtt.NewClientOptions()
	clientOptions.AddBroker(opts.Server)
	clientOptions.SetClientID(opts.ClientID)
	clientOptions.SetAutoReconnect(true)

	if opts.Username != "" {
		clientOptions.SetUsername(opts.Username)
		clientOptions.SetPassword(opts.Password)
	}

	clientOptions.SetConnectionLostHandler(func(client pahomqtt.Client, err error) {
		logging.Logger(nil).WithError(err).Warnf("lost connection to MQTT server %s", opts.Server)
	})

	client := pahomqtt.NewClient(clientOptions)

	ctx, cancel := context.WithTimeout(context.Background(), defaultMQTTTimeout)
	defer cancel()
	if err := awaitToken(ctx, client.Connect()); err != nil {
		return nil, errors.Wrapf(err, "connecting to MQTT server %s", opts.Server)
	}

	return newMQTTSink(client, opts), nil
}

func newMQTTSink(client pahomqtt.Client, opts MQTTOptions) *MQTTSink {
	return &MQTTSink{
		client:   client,
		prefix:   strings.TrimSuffix(opts.Prefix, "/"),
		qos:      opts.QOS,
		retained: opts.Retained,
		timeout:  defaultMQTTTimeout,
	}
}

func (s *MQTTSink) WithTimeout(d time.Duration) *MQTTSink {
	ns := *s
	ns.timeout = d
	return &ns
}

func (s *MQTTSink) topic(a Alert) string {
	// MQTT wildcards and separators are not allowed in a topic level
	camera := strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(a.CameraID)

	parts := []string{camera, string(a.Kind)}
	if s.prefix != "" {
		parts = append([]string{s.prefix}, parts...)
	}
	return strings.Join(parts, "/")
}

func (s *MQTTSink) Publish(alerts []Alert) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	for _, a := range alerts {
		payload, err := json.Marshal(a)
		if err != nil {
			return errors.Wrap(err, "encoding alert")
		}

		topic := s.topic(a)
		if err := awaitToken(ctx, s.client.Publish(topic, s.qos, s.retained, payload)); err != nil {
			return errors.Wrapf(err, "publishing alert to MQTT topic %s", topic)
		}

		logging.ForCamera(nil, a.CameraID).Debugf("published alert %s to %s", a.ID, topic)
	}

	return nil
}

// Close disconnects from the broker, waiting briefly for in-flight work
func (s *MQTTSink) Close() {
	s.client.Disconnect(1500)
}

func awaitToken(ctx context.Context, token pahomqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return context.DeadlineExceeded
	}
}
