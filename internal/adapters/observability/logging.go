package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog Logger writing JSON to stderr. APP_ENV=dev
// (or development) switches to the human-friendly console writer. Stdout is
// reserved for the MCP stdio transport, so logs must never touch it.
func NewLogger(env string) zerolog.Logger {
	l := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if env == "dev" || env == "development" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return l
}
