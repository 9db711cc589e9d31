package modem

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger is the type every pipeline component accepts: a single
// configurable sink, never a package-level global, so a process hosting
// several independent Receiver/Transmitter instances (e.g. a multi-channel
// relay) can give each its own prefix and level.
//
// One configurable text-output sink threaded through the decoder rather
// than scattered fmt.Printf calls, built on charmbracelet/log's
// structured leveled logger.
type Logger = log.Logger

// discardLogger is the default sink for a component that has not been
// given one: silent, so library code never writes to stdout/stderr
// unless a caller opts in.
var discardLogger = log.New(io.Discard)

// NewLogger builds a logger writing to w at the given level ("debug",
// "info", "warn", "error"; unrecognized values fall back to "info"),
// prefixed with name. Components are expected to receive one of these (or
// discardLogger) via SetLogger rather than constructing their own.
func NewLogger(w io.Writer, name, level string) *Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          name,
	})
	l.SetLevel(parseLevel(level))
	return l
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
