package logging

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxnID(t *testing.T) {
	_, ok := TxnID(nil)
	assert.False(t, ok)

	ctx := WithTxnID(context.Background(), "abc")
	id, ok := TxnID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	assert.Equal(t, "abc", Logger(ctx).Data["txnid"])
	assert.NotContains(t, Logger(context.Background()).Data, "txnid")
}

func TestForDevice(t *testing.T) {
	assert.Equal(t, "12:34:56:00:f1:62", ForCamera(nil, "12:34:56:00:f1:62").Data["camera"])
	assert.Equal(t, "home", ForHome(nil, "home").Data["home"])
	assert.NotEmpty(t, Logger(nil).Data["instance"])
}

func TestConfigure(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	tests := []struct {
		name    string
		format  string
		level   string
		wantErr bool
	}{
		{"json", "json", "warn", false},
		{"text", "text", "info", false},
		{"bad format", "xml", "info", true},
		{"bad level", "text", "loud", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logrus.SetLevel(logrus.InfoLevel)

			cfg := viper.New()
			cfg.Set("logging.location", "stderr")
			cfg.Set("logging.format", tt.format)
			cfg.Set("logging.level", tt.level)

			err := Configure(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigure_File(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)

	dir, err := ioutil.TempDir("", "logging")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	logFile := filepath.Join(dir, "netatmo-cameras.log")

	cfg := viper.New()
	cfg.Set("logging.location", logFile)
	cfg.Set("logging.format", "json")
	cfg.Set("logging.level", "info")
	cfg.Set("logging.max-size-mb", 1)
	require.NoError(t, Configure(cfg))

	Logger(nil).Info("written to the file")

	data, err := ioutil.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to the file")

	cfg.Set("logging.location", "stderr")
	require.NoError(t, Configure(cfg))
}
