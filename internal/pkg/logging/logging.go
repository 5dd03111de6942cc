package logging

import (
	"context"
	"os"
	"path"

	stdlog "log"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

/*
 *  Process wide diagnostics logging, optionally tagged with a transaction ID
 */

type ctxKey int

const (
	txnIDKey ctxKey = iota
)

// WithTxnID returns a context which knows its transaction ID
func WithTxnID(ctx context.Context, txnID string) context.Context {
	return context.WithValue(ctx, txnIDKey, txnID)
}

// TxnID returns the transaction ID stored in the context, if any
func TxnID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}

	txnID, ok := ctx.Value(txnIDKey).(string)
	return txnID, ok
}

var (
	gEntry      *logrus.Entry
	gLogFile    *lumberjack.Logger
	gInstanceID string
)

func processFields() logrus.Fields {
	return logrus.Fields{
		"pid":      os.Getpid(),
		"exe":      path.Base(os.Args[0]),
		"instance": gInstanceID,
	}
}

func init() {
	viper.SetDefault("logging.location", "stderr")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.max-size-mb", 50)
	viper.SetDefault("logging.max-backups", 5)
	viper.SetDefault("logging.compress", true)

	gInstanceID = uuid.New().String()
	gEntry = logrus.WithFields(processFields())
}

// Logger returns the global logger, with the transaction ID attached when
// the context carries one
func Logger(ctx context.Context) *logrus.Entry {
	if txnID, ok := TxnID(ctx); ok {
		return gEntry.WithField("txnid", txnID)
	}

	return gEntry
}

// ForCamera returns a logger tagged with a camera ID
func ForCamera(ctx context.Context, cameraID string) *logrus.Entry {
	return Logger(ctx).WithField("camera", cameraID)
}

// ForHome returns a logger tagged with a home ID
func ForHome(ctx context.Context, homeID string) *logrus.Entry {
	return Logger(ctx).WithField("home", homeID)
}

// Configure sets the log level, format and output location
func Configure(cfg *viper.Viper) error {
	switch loc := cfg.GetString("logging.location"); loc {
	case "stdout":
		logrus.SetOutput(os.Stdout)
	case "stderr":
		logrus.SetOutput(os.Stderr)
	default:
		// rotated by size
		file := &lumberjack.Logger{
			Filename:   loc,
			MaxSize:    cfg.GetInt("logging.max-size-mb"),
			MaxBackups: cfg.GetInt("logging.max-backups"),
			Compress:   cfg.GetBool("logging.compress"),
		}

		gEntry.Debugf("switching log output to %s", loc)
		logrus.SetOutput(file)

		if gLogFile != nil {
			gLogFile.Close()
		}
		gLogFile = file
	}

	// --debug on the command line wins over the configured level
	if !logrus.IsLevelEnabled(logrus.DebugLevel) {
		level := cfg.GetString("logging.level")
		val, err := logrus.ParseLevel(level)
		if err != nil {
			return errors.Errorf("bad log level: [%s]", level)
		}
		logrus.SetLevel(val)
	}

	switch format := cfg.GetString("logging.format"); format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{})
	default:
		return errors.Errorf("bad log format: [%s]", format)
	}

	gEntry = logrus.WithFields(processFields())

	stdlog.SetOutput(Logger(nil).WriterLevel(logrus.DebugLevel))

	return nil
}
