package logging

import (
	log "github.com/sirupsen/logrus"
)

// AppName is the name used to tag all log entries of this app.
const AppName = "jacoco"

var defaultLevel = log.InfoLevel

// AppLogger returns the application logger. Packages derive their own entry from it
// by adding a 'component' field.
func AppLogger() *log.Entry {
	return log.WithFields(log.Fields{"app": AppName})
}

// SetLevel sets the level of the application logger. An unknown level falls back to info.
func SetLevel(level string) {
	l, err := log.ParseLevel(level)
	if err != nil {
		AppLogger().Warnf("invalid log level '%s', using '%s'", level, defaultLevel)
		l = defaultLevel
	}
	log.SetLevel(l)
}
