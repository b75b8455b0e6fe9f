// Package logs provides per-subsystem structured loggers, modeled on
// daglabs-btcd/logger's named-subsystem-backend pattern (see
// logger/logger.go's subsystemLoggers map and SetLogLevel) but backed by
// github.com/sirupsen/logrus instead of the teacher's bespoke logs
// package, since this repo's ambient logging dependency is a real
// ecosystem logger rather than an internal one.
//
// Each package that logs holds a package-level Logger obtained from New
// ("CACHE", "TREE", "CORE"); every Logger shares one process-wide logrus
// backend and subsystem registry, so SetLevel affects all of them.
package logs

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is a named-subsystem wrapper around a logrus.Entry, giving every
// subsystem ("CACHE", "TREE", "UPGRD", ...) its own log level the way
// daglabs-btcd/logger.SetLogLevel(subsystem, level) does.
type Logger struct {
	entry *logrus.Entry
}

var (
	backend = logrus.New()

	mu      sync.Mutex
	loggers = make(map[string]*Logger)
)

func init() {
	backend.SetLevel(logrus.InfoLevel)
}

// New returns the Logger for subsystem, creating and caching it on first
// use.
func New(subsystem string) *Logger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[subsystem]; ok {
		return l
	}
	l := &Logger{entry: backend.WithField("subsystem", subsystem)}
	loggers[subsystem] = l
	return l
}

// SetLevel sets the backend's log level, affecting every subsystem
// logger, matching logger.SetLogLevels' "all subsystems share one
// backend" discipline.
func SetLevel(level logrus.Level) {
	backend.SetLevel(level)
}

// Tracef logs at trace level, used for the per-lookup detail
// BlockchainCache.cpp guards behind DEBUGGING/TRACE in its own logger.
func (l *Logger) Tracef(format string, args ...interface{}) {
	l.entry.Tracef(format, args...)
}

// Debugf logs at debug level, used by pushBlock/split the way
// BlockchainCache.cpp's `logger(Logging::DEBUGGING) << ...` calls do.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// Infof logs at info level, used for reorg and upgrade-activation
// milestones a node operator cares about.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// Warnf logs at warn level, used for recoverable anomalies (a batch
// ingest stopped by a rejected block).
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// Errorf logs at error level, used for storage-layer failures the caller
// must still handle explicitly (the core never logs-and-discards per
// spec §7).
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}
