package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"code.cloudfoundry.org/lager/v3"
)

// LogLevel is the minimum level a logger emits
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelError LogLevel = "error"
	LogLevelFatal LogLevel = "fatal"
)

// ParseLevel maps a LOG_LEVEL value onto a lager level. Empty means info.
func ParseLevel(s string) (lager.LogLevel, error) {
	switch LogLevel(strings.ToLower(strings.TrimSpace(s))) {
	case LogLevelDebug:
		return lager.DEBUG, nil
	case LogLevelInfo, "":
		return lager.INFO, nil
	case LogLevelError:
		return lager.ERROR, nil
	case LogLevelFatal:
		return lager.FATAL, nil
	default:
		return lager.INFO, fmt.Errorf("unknown log level: %s", s)
	}
}

// New returns a logger for component writing JSON lines to w at or above
// level. The returned sink can change the level at runtime. A nil w means
// stdout.
func New(component, level string, w io.Writer) (lager.Logger, *lager.ReconfigurableSink, error) {
	minLevel, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	if w == nil {
		w = os.Stdout
	}

	logger := lager.NewLogger(component)
	sink := lager.NewReconfigurableSink(lager.NewWriterSink(w, lager.DEBUG), minLevel)
	logger.RegisterSink(sink)
	return logger, sink, nil
}

// Discard returns a logger without sinks
func Discard(component string) lager.Logger {
	return lager.NewLogger(component)
}
