package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger. Verbosity 0 shows warnings, 1 info,
// 2 debug and anything higher trace.
func Setup(out io.Writer, verbosity int) {
	switch verbosity {
	case 0:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case 1:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case 2:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}
	if out == nil {
		out = os.Stderr
	}
	consoleWriter := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.Kitchen,
	}
	log.Logger = zerolog.New(consoleWriter).With().Timestamp().Logger()
	if verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}
}

// Get returns a logger tagged with the given component name.
func Get(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Duration logs how long an operation took once the returned func runs.
func Duration(l zerolog.Logger, operation string) func() {
	start := time.Now()
	return func() {
		l.Info().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Msg("done")
	}
}

// Clear wipes the terminal between rebuilds.
func Clear(out io.Writer) {
	fmt.Fprint(out, "\033[H\033[2J")
}
