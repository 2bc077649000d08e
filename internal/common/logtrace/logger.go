// Package logtrace configures the process-wide zerolog logger and carries
// request ids through contexts.
package logtrace

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger points the global logger at stderr with Unix millisecond
// timestamps. Verbose lowers the level to debug. Contexts without a logger of
// their own log through the global one.
func InitLogger(verbose bool) {
	initLogger(os.Stderr, verbose)
}

func initLogger(w io.Writer, verbose bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log.Logger
}
