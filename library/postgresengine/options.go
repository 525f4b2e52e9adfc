package postgresengine

import (
	"time"

	"github.com/PeiPei233/Library-Management-System/library"
)

// Option defines a functional option for configuring a Library engine.
type Option func(*Library) error

// WithTableNames sets the names of the book, card, and borrow tables.
func WithTableNames(bookTable, cardTable, borrowTable string) Option {
	return func(l *Library) error {
		if bookTable == "" || cardTable == "" || borrowTable == "" {
			return library.ErrEmptyTableName
		}

		l.bookTableName = bookTable
		l.cardTableName = cardTable
		l.borrowTableName = borrowTable

		return nil
	}
}

// WithLogger sets the logger for the Library engine.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: operation summaries and business rule failures (production-safe)
// Warn level: non-critical issues like rollback or cleanup failures
// Error level: storage failures that cause operation failures.
func WithLogger(logger Logger) Option {
	return func(l *Library) error {
		l.logger = logger
		return nil
	}
}

// WithLockTimeout bounds how long an operation waits for a row lock before
// failing as a retryable storage error. Zero restores the default.
func WithLockTimeout(timeout time.Duration) Option {
	return func(l *Library) error {
		if timeout <= 0 {
			l.lockTimeout = defaultLockTimeout
			return nil
		}

		l.lockTimeout = timeout

		return nil
	}
}
