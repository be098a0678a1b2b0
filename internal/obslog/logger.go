// Package obslog is the shared structured-logging package for all three
// dmcap processes (data-center, backend, tool).
package obslog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a logrus logger pre-configured for a named process. Output is
// JSON to stdout; level is controlled by the LOG_LEVEL env var (default info).
func New(service string) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log.WithField("service", service)
}

// RedactToken masks a bearer token for logging: first 4 characters plus
// "...". Never log a token in full — it is a live bearer credential.
func RedactToken(token string) string {
	if len(token) == 0 {
		return "[empty]"
	}
	if len(token) <= 4 {
		return token[:1] + "..."
	}
	return token[:4] + "..."
}
