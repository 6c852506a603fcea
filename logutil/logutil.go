// Package logutil is the engine's ambient logging layer. The teacher calls a
// single package-level util.Logf(tag, who, format, args...) helper from
// every component (TransactionQueue, Chain, Node); we keep that call shape
// but back it with logrus structured fields instead of a bare log.Printf, so
// tag and who become queryable fields rather than string prefixes.
package logutil

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu     sync.RWMutex
	logger = defaultLogger()
)

func defaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel adjusts the package logger's verbosity, parsing the same level
// names logrus itself accepts ("debug", "info", "warn", "error").
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	logger.SetLevel(lvl)
	return nil
}

// Logf logs a message tagged with a short component code and the node it
// concerns, mirroring the teacher's util.Logf("TQ", q.publicKey, format, a...)
// convention used throughout currency.TransactionQueue and consensus.Chain.
func Logf(tag string, who string, format string, args ...interface{}) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.WithFields(logrus.Fields{
		"component": tag,
		"node":      who,
	}).Infof(format, args...)
}

// Debugf is Logf's debug-level counterpart, used for per-message tracing
// that should stay silent outside development.
func Debugf(tag string, who string, format string, args ...interface{}) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.WithFields(logrus.Fields{
		"component": tag,
		"node":      who,
	}).Debugf(format, args...)
}

// Errorf logs a component error, used where the teacher's code would have
// reached for log.Printf("... error: %v", err).
func Errorf(tag string, who string, format string, args ...interface{}) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.WithFields(logrus.Fields{
		"component": tag,
		"node":      who,
	}).Errorf(format, args...)
}
