// Package logx wraps logrus with the package-level, printf-style API used
// throughout this codebase (Infof/Debugf/Warnf/Errorf), so call sites read
// the same whether they log from the server, the replication state machine,
// or the RDB codec.
package logx

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetDebug toggles debug-level logging on or off for the whole process.
func SetDebug(on bool) {
	if on {
		log.SetLevel(logrus.DebugLevel)
		return
	}
	log.SetLevel(logrus.InfoLevel)
}

// WithField returns a logrus entry pre-populated with a component tag, e.g.
// logx.WithField("component", "replication").Info("connected to master")
func WithField(key string, value interface{}) *logrus.Entry {
	return log.WithField(key, value)
}

func Debugf(format string, args ...interface{}) { log.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { log.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { log.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { log.Errorf(format, args...) }

func Debug(args ...interface{}) { log.Debug(args...) }
func Info(args ...interface{})  { log.Info(args...) }
func Warn(args ...interface{})  { log.Warn(args...) }
func Error(args ...interface{}) { log.Error(args...) }

// Fatalf logs at fatal level and exits the process with a non-zero status.
// Startup failures (config/bind/RDB load) do not go through it: cmd/server
// returns them as errors and exits with status 1.
func Fatalf(format string, args ...interface{}) {
	log.Fatalf(format, args...)
}
