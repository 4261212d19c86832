// Package logger builds the shared logrus instance.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates a logger at the given level. Production runs emit
// JSON for log aggregation, everything else gets colored text.
func NewLogger(level, environment string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
		log.Warnf("Unknown log level %q, using info", level)
	}
	log.SetLevel(parsed)

	if environment == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}
	return log
}
