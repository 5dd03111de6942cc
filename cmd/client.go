package cmd

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/camera"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/netatmo"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/tokenstore"
)

/*
 * Account flags are persistent on the root command: a viper key can only be
 * bound to one flag.
 */

func init() {
	addAccountFlags(rootCmd)
}

func addAccountFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("base-url", netatmo.DefaultBaseURL, "Netatmo API base URL")
	cmd.PersistentFlags().String("client-id", "", "oauth Client ID of the Netatmo app")
	cmd.PersistentFlags().String("client-secret", "", "oauth Client Secret of the Netatmo app")
	cmd.PersistentFlags().String("refresh-token", "", "refresh token used to seed the token file when it does not exist")
	cmd.PersistentFlags().String("token-file", "~/.netatmo-cameras-token.json", "file holding the account's oauth tokens")
	cmd.PersistentFlags().Duration("api-timeout", time.Second*15, "maximum duration of a Netatmo API call, eg. 1m or 10s")
	cmd.PersistentFlags().Duration("ping-timeout", time.Second*4, "maximum duration of a camera reachability probe")
	cmd.PersistentFlags().Int("event-count", 15, "number of events per home to load")

	errPanic(viper.GetViper().BindPFlag("netatmo.base-url", cmd.PersistentFlags().Lookup("base-url")))
	errPanic(viper.GetViper().BindPFlag("netatmo.client-id", cmd.PersistentFlags().Lookup("client-id")))
	errPanic(viper.GetViper().BindPFlag("netatmo.client-secret", cmd.PersistentFlags().Lookup("client-secret")))
	errPanic(viper.GetViper().BindPFlag("netatmo.refresh-token", cmd.PersistentFlags().Lookup("refresh-token")))
	errPanic(viper.GetViper().BindPFlag("netatmo.token-file", cmd.PersistentFlags().Lookup("token-file")))
	errPanic(viper.GetViper().BindPFlag("netatmo.api-timeout", cmd.PersistentFlags().Lookup("api-timeout")))
	errPanic(viper.GetViper().BindPFlag("netatmo.ping-timeout", cmd.PersistentFlags().Lookup("ping-timeout")))
	errPanic(viper.GetViper().BindPFlag("netatmo.event-count", cmd.PersistentFlags().Lookup("event-count")))
}

func checkAccountFlags(more ...string) error {
	return checkRequiredFlags(append([]string{"netatmo.client-id", "netatmo.client-secret"}, more...)...)
}

func netatmoConfig() netatmo.Config {
	return netatmo.Config{
		BaseURL:      viper.GetString("netatmo.base-url"),
		ClientID:     viper.GetString("netatmo.client-id"),
		ClientSecret: viper.GetString("netatmo.client-secret"),
		Scopes:       viper.GetStringSlice("netatmo.scopes"),
		Timeout:      viper.GetDuration("netatmo.api-timeout"),
	}
}

// loadTokenState reads the token file, seeding it from the configured
// refresh token the first time
func loadTokenState(cfg netatmo.Config) (*tokenstore.State, error) {
	tokenFile, err := expandPath(viper.GetString("netatmo.token-file"))
	if err != nil {
		return nil, errors.Wrap(err, "resolving token file")
	}

	state := tokenstore.NewState()
	err = state.Load(tokenFile)
	switch {
	case err == nil:
		return &state, nil
	case !os.IsNotExist(errors.Cause(err)):
		return nil, err
	}

	refreshToken := viper.GetString("netatmo.refresh-token")
	if refreshToken == "" {
		return nil, errors.Errorf("no token file %s and no refresh token configured, run login first", tokenFile)
	}

	logging.Logger(nil).Infof("seeding token file %s from the configured refresh token", tokenFile)
	state = tokenstore.NewState().WithRefreshToken(refreshToken)
	state.ClientID = cfg.ClientID
	if err := state.Save(tokenFile); err != nil {
		return nil, err
	}

	return &state, nil
}

func newLiveClient() (*netatmo.Live, error) {
	cfg := netatmoConfig()

	state, err := loadTokenState(cfg)
	if err != nil {
		return nil, err
	}

	return netatmo.NewLiveClient(cfg).WithTokenSource(state.TokenSource(netatmo.OAuthConfig(cfg))), nil
}

func newDirectory() (*camera.Directory, error) {
	cli, err := newLiveClient()
	if err != nil {
		return nil, err
	}

	return camera.NewDirectory(cli,
		camera.WithPingTimeout(viper.GetDuration("netatmo.ping-timeout")),
		camera.WithEventCount(viper.GetInt("netatmo.event-count")),
	), nil
}

// loadDirectory builds a directory and loads its first snapshot
func loadDirectory() (*camera.Directory, error) {
	dir, err := newDirectory()
	if err != nil {
		return nil, err
	}

	if err := dir.Load(); err != nil {
		return nil, err
	}

	return dir, nil
}
