// Package utils holds small cross-cutting helpers: logger setup, time, and
// string formatting.
package utils

import (
	"github.com/sirupsen/logrus"
)

// LogSettings configures the global logger.
type LogSettings struct {
	Level  string // trace, debug, info, warn, error
	Format string // "text" or "json"
}

// SetupLogger configures the global logrus logger based on the provided
// settings.
func SetupLogger(settings LogSettings) {
	level, err := logrus.ParseLevel(settings.Level)
	if err != nil {
		logrus.Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if settings.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00", // ISO 8601 format
		})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
}
