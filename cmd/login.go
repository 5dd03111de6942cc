package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/netatmo"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/tokenstore"
)

var _loginCmdOpts struct {
	code  string
	state string
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Obtain and store the account's oauth tokens",
	Long: `Without --code, login prints the URL at which the account owner grants
access.  That URL redirects to --redirect-uri with a code, which is then
passed back with --code to store the tokens.

With a configured refresh token and no --code, login exchanges the refresh
token for a fresh token pair and stores it.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doLogin(); err != nil {
			return err
		}

		return nil
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		return checkAccountFlags()
	},
}

func init() {
	loginCmd.Flags().StringVar(&_loginCmdOpts.code, "code", "", "authorization code returned to the redirect URI")
	loginCmd.Flags().StringVar(&_loginCmdOpts.state, "state", "", "state to embed in the authorization URL (default random)")
	loginCmd.Flags().String("redirect-uri", "", "redirect URI registered with the Netatmo app")

	errPanic(viper.GetViper().BindPFlag("netatmo.redirect-uri", loginCmd.Flags().Lookup("redirect-uri")))

	rootCmd.AddCommand(loginCmd)
}

func doLogin() error {
	cfg := netatmoConfig()
	oauthCfg := netatmo.OAuthConfig(cfg)
	redirectURI := viper.GetString("netatmo.redirect-uri")

	tokenFile, err := expandPath(viper.GetString("netatmo.token-file"))
	if err != nil {
		return err
	}

	if _loginCmdOpts.code != "" {
		if err := checkRequiredFlags("netatmo.redirect-uri"); err != nil {
			return err
		}

		state := tokenstore.NewState()
		if err := state.Save(tokenFile); err != nil {
			return err
		}
		if err := state.AuthCodeFlow(oauthCfg, redirectURI, _loginCmdOpts.code); err != nil {
			return err
		}

		logging.Logger(nil).Infof("stored tokens in %s", tokenFile)
		return nil
	}

	if viper.GetString("netatmo.refresh-token") != "" {
		state := tokenstore.NewState().WithRefreshToken(viper.GetString("netatmo.refresh-token"))
		if err := state.Save(tokenFile); err != nil {
			return err
		}
		if err := state.RefreshTokenFlow(oauthCfg); err != nil {
			return err
		}

		logging.Logger(nil).Infof("stored refreshed tokens in %s: %s", tokenFile, state)
		return nil
	}

	if err := checkRequiredFlags("netatmo.redirect-uri"); err != nil {
		return err
	}

	stateParam := _loginCmdOpts.state
	if stateParam == "" {
		stateParam = uuid.New().String()
	}

	fmt.Println("Visit this URL, then run login again with the code it redirects with:")
	fmt.Println(tokenstore.AuthCodeURL(oauthCfg, redirectURI, stateParam))
	return nil
}
