// Package logging builds the process-wide logrus logger every component
// pulls a per-subsystem *logrus.Entry from.
//
// Grounded on the "WithFields(logrus.Fields{...}).Logger()" per-subsystem
// idiom used throughout kata-containers' virtcontainers package (see
// FilesystemShare.Logger in fs_share_linux.go), generalized here from one
// hardcoded subsystem field to an arbitrary component name passed by each
// package. The dev/prod formatter split mirrors the console-vs-JSON sink
// split log_capturer_go's config draws between local development and
// production deployments, expressed through logrus's own formatter
// interface rather than a bespoke sink abstraction.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the root logger. jsonFormat selects logrus.JSONFormatter
// (production) over logrus.TextFormatter (development); level parses any
// logrus level name ("debug", "info", "warn", "error"), falling back to
// Info on an unrecognized value so a typo'd config never silences the
// daemon outright.
func New(levelName string, jsonFormat bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	if jsonFormat {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// Component returns an entry tagged with the given subsystem name, the
// per-package logger every component (scanner, source, httpapi, ...) should
// hold instead of the bare root logger.
func Component(log *logrus.Logger, name string) *logrus.Entry {
	return log.WithFields(logrus.Fields{"component": name})
}
