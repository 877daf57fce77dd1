package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	globalLogger zerolog.Logger
	initialized  bool
)

// InitLogger initializes the global structured logger. Pretty output is for
// running the daemon in a terminal; JSON otherwise.
func InitLogger(level string, pretty bool) {
	if initialized {
		return
	}

	logLevel := zerolog.InfoLevel
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	case "fatal":
		logLevel = zerolog.FatalLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	if pretty {
		output := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
		globalLogger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		globalLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	log.Logger = globalLogger
	initialized = true
}

// GetLogger returns the global logger, initializing with defaults if needed.
func GetLogger() zerolog.Logger {
	if !initialized {
		InitLogger("info", false)
	}
	return globalLogger
}
