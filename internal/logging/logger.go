package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger with configuration from environment variables.
// VISION_LOG_LEVEL controls the log level: debug, info, warn, error (default: info)
func Init() {
	InitWithLevel(os.Getenv("VISION_LOG_LEVEL"))
}

// InitWithLevel initializes the global logger at the given level name.
// Unknown or empty names fall back to info.
func InitWithLevel(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// InitJSON routes structured JSON logs to w instead of the console writer.
// The MCP server uses this because stdout carries the protocol stream.
func InitJSON(level string, w io.Writer) {
	zerolog.SetGlobalLevel(ParseLevel(level))
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
