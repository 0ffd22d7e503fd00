package logging

import (
	"io"
	"os"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileMaxSizeMB = 50

type LoggerSetupParams struct {
	LogFileName      string
	LogToStdout      bool
	LogLevel         string
	LogFormatJSON    bool
	Environment      string
	SentryEnabled    bool
	SentryDSN        string
	SentryServerName string
}

// Setup configures the global logrus logger: level, format, outputs and the
// optional Sentry hook for error levels.
func Setup(params LoggerSetupParams) {
	if params.LogFormatJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	if params.SentryEnabled {
		setupSentry(params)
	}

	logrus.SetLevel(GetLevel(params.LogLevel))

	output, description := newOutput(params)
	logrus.SetOutput(output)
	logrus.Debugf("writing logs to %s", description)
}

func setupSentry(params LoggerSetupParams) {
	err := sentry.Init(sentry.ClientOptions{
		Environment:      params.Environment,
		Dsn:              params.SentryDSN,
		TracesSampleRate: 1.0,
		ServerName:       params.SentryServerName,
	})
	if err != nil {
		logrus.Errorf("sentry.Init: %s", err)
		return
	}

	logrus.AddHook(NewSentryHook([]logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
	}))
	logrus.Infoln("Sentry set up successfully")
}

func newOutput(params LoggerSetupParams) (io.Writer, string) {
	if params.LogFileName == "" {
		return os.Stdout, "STDOUT"
	}

	fileName := params.LogFileName
	if !strings.HasSuffix(fileName, ".log") {
		fileName += ".log"
	}

	// rotated files are kept, no MaxBackups / MaxAge
	logFile := &lumberjack.Logger{
		Filename:  fileName,
		MaxSize:   logFileMaxSizeMB,
		LocalTime: false, // UTC
		Compress:  true,
	}

	if params.LogToStdout {
		return newTeeWriter(os.Stdout, logFile), fileName + " and STDOUT"
	}
	return logFile, fileName
}

// GetLevel parses a level name, case-insensitive. Unknown names mean trace.
func GetLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.TraceLevel
	}
	return lvl
}
