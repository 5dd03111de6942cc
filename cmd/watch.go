package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/alerts"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/watcher"
)

var _watchCmdOpts struct {
	interval              time.Duration
	maxConcurrent         int
	sink                  string
	webhookURL            string
	sinkTimeout           time.Duration
	googlePubSubProjectID string
	googlePubSubTopic     string
	googleCloudCredsFile  string
	mqttServer            string
	mqttTopicPrefix       string
	mqttUsername          string
	mqttPassword          string
	mqttQOS               uint8
	mqttRetained          bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the cameras and publish detections as alerts",

	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doWatch(); err != nil {
			return err
		}

		return nil
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := checkAccountFlags(); err != nil {
			return err
		}

		switch viper.GetString("watch.sink") {
		case "webhook":
			return checkRequiredFlags("watch.webhook-url")
		case "pubsub":
			return checkRequiredFlags("google.pubsub.project-id", "google.pubsub.topic-id")
		case "mqtt":
			return checkRequiredFlags("mqtt.server")
		default:
			return errors.Errorf("unknown alert sink %q, expected webhook, pubsub or mqtt", viper.GetString("watch.sink"))
		}
	},
}

func init() {
	watchCmd.Flags().DurationVar(&_watchCmdOpts.interval, "interval", time.Minute, "poll interval, also the detection window")
	watchCmd.Flags().IntVar(&_watchCmdOpts.maxConcurrent, "max-concurrent", 10, "maximum number of alerts being published at once")
	watchCmd.Flags().StringVar(&_watchCmdOpts.sink, "sink", "webhook", "where to publish alerts: webhook, pubsub or mqtt")
	watchCmd.Flags().StringVar(&_watchCmdOpts.webhookURL, "webhook-url", "", "URL to POST alerts to")
	watchCmd.Flags().DurationVar(&_watchCmdOpts.sinkTimeout, "sink-timeout", time.Second*15, "maximum duration of an alert delivery, eg. 1m or 10s")
	watchCmd.Flags().StringVar(&_watchCmdOpts.googlePubSubProjectID, "pubsub-project", "", "ID of the Google cloud project containing the pub/sub topic")
	watchCmd.Flags().StringVar(&_watchCmdOpts.googlePubSubTopic, "pubsub-topic", "", "Google pub/sub topic ID")
	watchCmd.Flags().StringVar(&_watchCmdOpts.googleCloudCredsFile, "gcp-creds", "", "Google Cloud service account credentials file (default application credentials)")

	watchCmd.Flags().StringVar(&_watchCmdOpts.mqttServer, "mqtt-server", "", "MQTT broker URL, eg. tcp://localhost:1883")
	watchCmd.Flags().StringVar(&_watchCmdOpts.mqttTopicPrefix, "mqtt-topic-prefix", "netatmo", "prefix of the MQTT alert topics")
	watchCmd.Flags().StringVar(&_watchCmdOpts.mqttUsername, "mqtt-username", "", "MQTT username")
	watchCmd.Flags().StringVar(&_watchCmdOpts.mqttPassword, "mqtt-password", "", "MQTT password")
	watchCmd.Flags().Uint8Var(&_watchCmdOpts.mqttQOS, "mqtt-qos", 1, "MQTT quality of service for alerts")
	watchCmd.Flags().BoolVar(&_watchCmdOpts.mqttRetained, "mqtt-retained", false, "publish alerts as retained messages")

	errPanic(viper.GetViper().BindPFlag("watch.interval", watchCmd.Flags().Lookup("interval")))
	errPanic(viper.GetViper().BindPFlag("watch.max-concurrent", watchCmd.Flags().Lookup("max-concurrent")))
	errPanic(viper.GetViper().BindPFlag("watch.sink", watchCmd.Flags().Lookup("sink")))
	errPanic(viper.GetViper().BindPFlag("watch.webhook-url", watchCmd.Flags().Lookup("webhook-url")))
	errPanic(viper.GetViper().BindPFlag("watch.sink-timeout", watchCmd.Flags().Lookup("sink-timeout")))
	errPanic(viper.GetViper().BindPFlag("google.pubsub.project-id", watchCmd.Flags().Lookup("pubsub-project")))
	errPanic(viper.GetViper().BindPFlag("google.pubsub.topic-id", watchCmd.Flags().Lookup("pubsub-topic")))
	errPanic(viper.GetViper().BindPFlag("google.creds.file", watchCmd.Flags().Lookup("gcp-creds")))
	errPanic(viper.GetViper().BindPFlag("mqtt.server", watchCmd.Flags().Lookup("mqtt-server")))
	errPanic(viper.GetViper().BindPFlag("mqtt.topic-prefix", watchCmd.Flags().Lookup("mqtt-topic-prefix")))
	errPanic(viper.GetViper().BindPFlag("mqtt.username", watchCmd.Flags().Lookup("mqtt-username")))
	errPanic(viper.GetViper().BindPFlag("mqtt.password", watchCmd.Flags().Lookup("mqtt-password")))
	errPanic(viper.GetViper().BindPFlag("mqtt.qos", watchCmd.Flags().Lookup("mqtt-qos")))
	errPanic(viper.GetViper().BindPFlag("mqtt.retained", watchCmd.Flags().Lookup("mqtt-retained")))

	rootCmd.AddCommand(watchCmd)
}

func newSink() (alerts.Sink, error) {
	timeout := viper.GetDuration("watch.sink-timeout")

	switch viper.GetString("watch.sink") {
	case "pubsub":
		return alerts.NewPubSubSink(viper.GetString("google.pubsub.project-id"), viper.GetString("google.pubsub.topic-id")).
			WithServiceAccountCreds(viper.GetString("google.creds.file")).
			WithTimeout(timeout), nil

	case "mqtt":
		sink, err := alerts.NewMQTTSink(alerts.MQTTOptions{
			Server:   viper.GetString("mqtt.server"),
			ClientID: "netatmo-cameras-" + uuid.New().String()[:8],
			Username: viper.GetString("mqtt.username"),
			Password: viper.GetString("mqtt.password"),
			Prefix:   viper.GetString("mqtt.topic-prefix"),
			QOS:      byte(viper.GetUint("mqtt.qos")),
			Retained: viper.GetBool("mqtt.retained"),
		})
		if err != nil {
			return nil, err
		}
		return sink.WithTimeout(timeout), nil
	}

	return alerts.NewWebhookSink(viper.GetString("watch.webhook-url")).WithTimeout(timeout), nil
}

func doWatch() error {
	interval := viper.GetDuration("watch.interval")
	if interval <= 0 {
		return errors.Errorf("watch interval must be positive, got %s", interval)
	}

	dir, err := newDirectory()
	if err != nil {
		return err
	}

	sink, err := newSink()
	if err != nil {
		return err
	}

	// context to allow us to stop the poll loop
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	// comms between poll and publish loops
	alertChan := make(chan alerts.Alert)

	wg.Add(1)
	go func() {
		defer wg.Done()
		watcher.PublishLoop(viper.GetInt("watch.max-concurrent"), sink, alertChan)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		watcher.PollLoop(ctx, dir, interval, time.Now, alertChan)
	}()

	// ctrl-c handler
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal
	<-c
	logging.Logger(nil).Info("main: shutting down")

	// stops the poll loop, which closes the channel and ends the publish loop
	cancel()
	wg.Wait()

	if closer, ok := sink.(interface{ Close() }); ok {
		closer.Close()
	}

	logging.Logger(nil).Info("main: exiting")
	return nil
}
