package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

const prefixWidth = 12

// Init configures the global logrus instance. Verbosity maps to
// info (0) / debug (1) / trace (2+). When logFilePath is set, output is
// mirrored to a size-rotated log file.
func Init(logLevel int, logFilePath string) error {
	var useLevel logrus.Level

	switch logLevel {
	case 0:
		useLevel = logrus.InfoLevel
	case 1:
		useLevel = logrus.DebugLevel
	default:
		useLevel = logrus.TraceLevel
	}

	logrus.SetLevel(useLevel)

	logrus.SetFormatter(&prefixed.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
		ForceFormatting: true,
	})

	if logFilePath != "" {
		logrus.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logFilePath,
			MaxSize:    5,
			MaxAge:     14,
			MaxBackups: 5,
		}))
	}

	return nil
}

// GetLogger returns a log entry carrying the given prefix.
func GetLogger(prefix string) *logrus.Entry {
	if len(prefix) > prefixWidth {
		prefix = prefix[:prefixWidth]
	}

	return logrus.WithField("prefix", fmt.Sprintf("%-*s", prefixWidth, prefix))
}
