package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	APP        = "APP"
	ASSISTANT  = "ASSISTANT"
	CHAT       = "CHAT"
	CONFIG     = "CONFIG"
	HANDLER    = "HANDLER"
	MIDDLEWARE = "MIDDLEWARE"
	REDIS      = "REDIS"
	SENTIMENT  = "SENTIMENT"
	SERVICE    = "SERVICE"
	WEBSOCKET  = "WEBSOCKET"
)

// Init configures the global zerolog logger. Level is one of debug, info, warn or error
// and format is json or console.
func Init(level, format string) {
	initWithWriter(level, format, os.Stderr)
}

func initWithWriter(level, format string, w io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLevel(level))

	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func Debug(namespace, format string, v ...interface{}) {
	log.Debug().Str("namespace", namespace).Msgf(format, v...)
}

func Info(namespace, format string, v ...interface{}) {
	log.Info().Str("namespace", namespace).Msgf(format, v...)
}

func Warn(namespace, format string, v ...interface{}) {
	log.Warn().Str("namespace", namespace).Msgf(format, v...)
}

func Error(namespace, format string, v ...interface{}) {
	log.Error().Str("namespace", namespace).Msgf(format, v...)
}
