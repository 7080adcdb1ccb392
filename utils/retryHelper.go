package utils

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultRetryAttempts = 3

// ExecuteWithRetry runs fn up to attempts times, backing off between tries.
// Only transient storage errors are retried; anything else fails fast.
//
// This replaces a retry-capable repository base class: data-access code
// composes with this helper instead of inheriting retry behavior. Never
// wrap an open transaction with it; retrying half a transaction is worse
// than failing it.
func ExecuteWithRetry(logger *logrus.Logger, label string, attempts int, fn func() error) error {
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !IsTransientError(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		sleep := time.Duration(attempt) * 500 * time.Millisecond
		if logger != nil {
			logger.WithFields(logrus.Fields{
				"label":   label,
				"attempt": attempt,
			}).Warn("transient error; retrying in " + sleep.String() + ": " + err.Error())
		}
		time.Sleep(sleep)
	}
	return err
}

// IsTransientError reports whether err looks like a connection-level
// failure worth retrying.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"invalid connection",
		"bad connection",
		"deadlock",
		"try restarting transaction",
		"i/o timeout",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
