package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logrus builds per-component loggers sharing one level and output.
type Logrus struct {
	level  string
	output io.Writer
	base   *logrus.Logger
}

// NewLogrus creates a new logrus instance. An unparsable level falls back to info.
func NewLogrus(level string, output io.Writer) *Logrus {
	log := logrus.New()
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(output)
	return &Logrus{level: level, output: output, base: log}
}

// Get returns a logger tagged with the component context
func (l *Logrus) Get(context string) *logrus.Entry {
	return l.base.WithFields(logrus.Fields{
		"Context": context,
	})
}

// Discard is a logger for tests and for collaborators built without one.
func Discard() *logrus.Entry {
	return NewLogrus("panic", io.Discard).Get("discard")
}
