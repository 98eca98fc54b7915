package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger: human readable output in
// development, JSON with timestamps and callers otherwise. Logs go to stderr
// so stdout stays free for command output.
func Init(serviceName, env, level string) zerolog.Logger {
	return InitWithWriter(os.Stderr, serviceName, env, level)
}

// InitWithWriter is Init with an explicit output
func InitWithWriter(out io.Writer, serviceName, env, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if env == "development" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}).With().
			Timestamp().
			Str("service", serviceName).
			Logger().
			Level(lvl)
	} else {
		log.Logger = zerolog.New(out).
			With().
			Timestamp().
			Caller().
			Str("service", serviceName).
			Logger().
			Level(lvl)
	}

	return log.Logger
}
