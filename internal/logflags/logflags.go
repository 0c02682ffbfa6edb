// Package logflags hands out the per-layer loggers used for diagnostics.
//
// Diagnostics go to a separate stream from search results (stderr by
// default) and are not part of the output contract.
package logflags

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var logger = newLogger(os.Stderr, logrus.WarnLevel)

func newLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.Out = out
	l.Level = level
	l.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	return l
}

// Setup redirects diagnostics to out. With verbose unset only warnings and
// errors are logged.
func Setup(verbose bool, out io.Writer) {
	level := logrus.WarnLevel
	if verbose {
		level = logrus.InfoLevel
	}
	if out == nil {
		out = os.Stderr
	}
	logger = newLogger(out, level)
}

// Verbose reports whether informational diagnostics are enabled.
func Verbose() bool {
	return logger.IsLevelEnabled(logrus.InfoLevel)
}

func makeLogger(fields logrus.Fields) *logrus.Entry {
	return logger.WithFields(fields)
}

// DictionaryLogger returns a logger for dictionary reduction and indexing.
func DictionaryLogger() *logrus.Entry {
	return makeLogger(logrus.Fields{"layer": "dictionary"})
}

// SearchLogger returns a logger for the combination search.
func SearchLogger() *logrus.Entry {
	return makeLogger(logrus.Fields{"layer": "search"})
}

// SourceLogger returns a logger for word sources.
func SourceLogger() *logrus.Entry {
	return makeLogger(logrus.Fields{"layer": "source"})
}

// FunctionLogger returns a logger for the HTTP function.
func FunctionLogger() *logrus.Entry {
	return makeLogger(logrus.Fields{"layer": "function"})
}
