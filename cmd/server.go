package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/camera"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/handlers"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/metrics"
	"github.com/jake-scott/netatmo-cameras/pkg/middlewares"
)

var _serverCmdOpts struct {
	httpsPort       uint16
	tlsCertPath     string
	tlsKeyPath      string
	gracefulTimeout time.Duration
	readTimeout     time.Duration
	writeTimeout    time.Duration
	refreshInterval time.Duration
	detectionWindow time.Duration
	corsOrigins     []string
	logRequests     bool
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the camera query web server",

	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doServer(); err != nil {
			return err
		}

		return nil
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		return checkAccountFlags()
	},
}

func init() {
	serverCmd.Flags().Uint16Var(&_serverCmdOpts.httpsPort, "port", 4343, "HTTP(S) port number")
	serverCmd.Flags().StringVar(&_serverCmdOpts.tlsCertPath, "tls-cert", "", "TLS certificate file (plain HTTP when unset)")
	serverCmd.Flags().StringVar(&_serverCmdOpts.tlsKeyPath, "tls-key", "", "TLS key file")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.gracefulTimeout, "graceful-timeout", time.Second*15, "duration to wait for server to finish, eg. 1m or 10s")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.readTimeout, "read-timeout", time.Second*15, "duration to wait for request read, eg. 1m or 10s")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.writeTimeout, "write-timeout", time.Second*60, "duration to wait for request write, eg. 1m or 10s")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.refreshInterval, "refresh-interval", time.Minute, "reload the camera directory when older than this, 0 to load once")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.detectionWindow, "detection-window", time.Minute*10, "detection window of the exported metrics, 0 for latest event only")
	serverCmd.Flags().StringSliceVar(&_serverCmdOpts.corsOrigins, "cors-origins", nil, "allowed CORS origins (default any)")
	serverCmd.Flags().BoolVar(&_serverCmdOpts.logRequests, "log-requests", false, "log requests and responses (only in debug mode)")

	errPanic(viper.GetViper().BindPFlag("https.port", serverCmd.Flags().Lookup("port")))
	errPanic(viper.GetViper().BindPFlag("https.cert", serverCmd.Flags().Lookup("tls-cert")))
	errPanic(viper.GetViper().BindPFlag("https.key", serverCmd.Flags().Lookup("tls-key")))
	errPanic(viper.GetViper().BindPFlag("https.graceful-timeout", serverCmd.Flags().Lookup("graceful-timeout")))
	errPanic(viper.GetViper().BindPFlag("https.read-timeout", serverCmd.Flags().Lookup("read-timeout")))
	errPanic(viper.GetViper().BindPFlag("https.write-timeout", serverCmd.Flags().Lookup("write-timeout")))
	errPanic(viper.GetViper().BindPFlag("server.refresh-interval", serverCmd.Flags().Lookup("refresh-interval")))
	errPanic(viper.GetViper().BindPFlag("server.detection-window", serverCmd.Flags().Lookup("detection-window")))
	errPanic(viper.GetViper().BindPFlag("server.cors-origins", serverCmd.Flags().Lookup("cors-origins")))
	errPanic(viper.GetViper().BindPFlag("logging.log-requests", serverCmd.Flags().Lookup("log-requests")))

	rootCmd.AddCommand(serverCmd)
}

func newRouter(dh *handlers.DirectoryHandler, logRequests bool) (*mux.Router, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(metrics.NewDirectoryCollector(dh, viper.GetDuration("server.detection-window"))); err != nil {
		return nil, err
	}

	metricsMw, err := middlewares.NewMetricsMw("netatmo_cameras", registry)
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	r.Use(middlewares.NewCorsMw(middlewares.QueryServerCorsOptions(viper.GetStringSlice("server.cors-origins"))))
	r.Use(middlewares.NewLoggingMw(logRequests))
	r.Use(middlewares.NewRecoveryMw())
	r.Use(middlewares.NewCorrelationMw("X-Correlation-ID"))
	r.Use(metricsMw)

	dh.Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return r, nil
}

func doServer() error {
	wait := viper.GetDuration("https.graceful-timeout")
	port := viper.GetUint("https.port")
	certFile := viper.GetString("https.cert")
	keyFile := viper.GetString("https.key")

	var logRequests bool
	if viper.GetBool("logging.log-requests") {
		if logrus.IsLevelEnabled(logrus.DebugLevel) {
			logRequests = true
		} else {
			logging.Logger(nil).Warn("log-requests ignored when not in debug mode")
		}
	}

	dir, err := newDirectory()
	if err != nil {
		return err
	}

	dh := handlers.NewDirectoryHandler(dir, viper.GetDuration("server.refresh-interval"))

	// first load, so bad credentials fail here
	if err := dh.View(func(*camera.Directory) error { return nil }); err != nil {
		return err
	}

	r, err := newRouter(dh, logRequests)
	if err != nil {
		return err
	}

	s := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		ReadTimeout:  viper.GetDuration("https.read-timeout"),
		WriteTimeout: viper.GetDuration("https.write-timeout"),
		IdleTimeout:  time.Second * 60,
		Handler:      r,
	}

	go func() {
		var err error
		if certFile != "" && keyFile != "" {
			logging.Logger(nil).Infof("serving HTTPS on port %d", port)
			err = s.ListenAndServeTLS(certFile, keyFile)
		} else {
			logging.Logger(nil).Infof("serving HTTP on port %d", port)
			err = s.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logging.Logger(nil).WithError(err).Error("running server")
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal
	<-c

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	logging.Logger(nil).Info("shutting down")
	if err := s.Shutdown(ctx); err != nil {
		logging.Logger(nil).WithError(err).Errorf("shutting down")
	}
	logging.Logger(nil).Info("exiting")
	return nil
}
