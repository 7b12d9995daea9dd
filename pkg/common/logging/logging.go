// Package logging wires logrus into coflow components.
//
// Components accept a logrus.FieldLogger in their Config. A nil logger falls
// back to Default, which writes warnings and above to stderr.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	defaultLogger     *logrus.Logger
	defaultLoggerInit sync.Once
)

// Default returns the package-wide logger.
func Default() *logrus.Logger {
	defaultLoggerInit.Do(func() {
		defaultLogger = New(os.Stderr, "warn")
	})
	return defaultLogger
}

// New creates a text logger writing to out at the given level.
func New(out io.Writer, level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	l.SetLevel(ParseLevel(level))
	return l
}

// Discard returns a logger that drops everything. Tests use it to keep output
// quiet.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

// ParseLevel maps a level name to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// OrDefault returns l, or Default when l is nil.
func OrDefault(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return Default()
	}
	return l
}

// Component returns a logger tagged with the component and instance name.
func Component(l logrus.FieldLogger, component, name string) logrus.FieldLogger {
	entry := OrDefault(l).WithField("component", component)
	if name != "" {
		entry = entry.WithField("name", name)
	}
	return entry
}
