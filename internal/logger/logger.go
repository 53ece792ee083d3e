package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns the process logger for env: JSON on stderr, human readable in development.
func New(env string) zerolog.Logger {
	return NewWithWriter(os.Stderr, env == "development")
}

// NewWithWriter builds an info-level logger writing to w, as console output when console is set.
func NewWithWriter(w io.Writer, console bool) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(w).With().Timestamp().Logger()

	if console {
		logger = logger.Output(zerolog.ConsoleWriter{Out: w, NoColor: true})
	}

	return logger.Level(zerolog.InfoLevel)
}
