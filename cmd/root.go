package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
)

const envPrefix = "NETATMO_CAMERAS"

var (
	_cfgFile string
	_debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "netatmo-cameras",
	Short: "Query and control Netatmo home cameras",
	Long: `netatmo-cameras loads the homes, cameras, persons and events of a Netatmo
account and answers questions about them: who is home, who was seen by
which camera, whether a camera is reachable.  It can also run an HTTP query
server and a watcher that publishes detections as alerts.`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Configure(viper.GetViper())
	},
}

// Execute adds all child commands to the root command and runs it
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logging.Logger(nil).WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&_cfgFile, "config", "", "config file (default is $HOME/.netatmo-cameras.yaml)")
	rootCmd.PersistentFlags().BoolVar(&_debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().String("log-location", "stderr", "log to stderr, stdout or a file")
	rootCmd.PersistentFlags().Bool("json", false, "print results as JSON")

	errPanic(viper.GetViper().BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level")))
	errPanic(viper.GetViper().BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format")))
	errPanic(viper.GetViper().BindPFlag("logging.location", rootCmd.PersistentFlags().Lookup("log-location")))
	errPanic(viper.GetViper().BindPFlag("output.json", rootCmd.PersistentFlags().Lookup("json")))
}

func initConfig() {
	if _debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if _cfgFile != "" {
		viper.SetConfigFile(_cfgFile)
	} else {
		home, err := homedir.Dir()
		errPanic(err)

		viper.AddConfigPath(home)
		viper.SetConfigName(".netatmo-cameras")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logging.Logger(nil).Debugf("using config file %s", viper.ConfigFileUsed())
	} else if _cfgFile != "" {
		errPanic(err)
	}
}

// errPanic is for init time failures, which are programming errors
func errPanic(err error) {
	if err != nil {
		panic(err)
	}
}

func checkRequiredFlags(needFlags ...string) error {
	missingFlags := []string{}

	for _, f := range needFlags {
		if !viper.IsSet(f) || viper.GetString(f) == "" {
			missingFlags = append(missingFlags, f)
		}
	}

	if len(missingFlags) > 0 {
		itemPlural := "item"
		if len(missingFlags) > 1 {
			itemPlural = "items"
		}
		return fmt.Errorf("required config %s `%s` not set", itemPlural, strings.Join(missingFlags, "`, `"))
	}

	return nil
}

// expandPath resolves a leading ~ in a configured file name
func expandPath(p string) (string, error) {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", err
	}
	return filepath.Clean(expanded), nil
}
