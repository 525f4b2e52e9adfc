// Package zapadapter provides a zap-backed implementation of the engine's
// Logger interface, for users who want structured logging without
// implementing the interface themselves.
package zapadapter

import (
	"go.uber.org/zap"

	"github.com/PeiPei233/Library-Management-System/library/postgresengine"
)

// ZapLogger implements postgresengine.Logger on top of a zap.SugaredLogger.
// The engine passes alternating key/value attribute pairs, which map
// directly onto zap's loosely typed keys-and-values API.
type ZapLogger struct {
	logger *zap.SugaredLogger
}

// NewZapLogger creates a logger adapter from an existing zap.Logger.
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: logger.Sugar()}
}

// NewDevelopmentLogger creates an adapter around a zap development logger,
// which logs at debug level and above with a human-friendly format.
func NewDevelopmentLogger() (*ZapLogger, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}

	return NewZapLogger(logger), nil
}

// NewProductionLogger creates an adapter around a zap production logger,
// which logs at info level and above as JSON.
func NewProductionLogger() (*ZapLogger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	return NewZapLogger(logger), nil
}

// Debug logs a debug message with key/value attributes.
func (l *ZapLogger) Debug(msg string, args ...any) {
	l.logger.Debugw(msg, args...)
}

// Info logs an info message with key/value attributes.
func (l *ZapLogger) Info(msg string, args ...any) {
	l.logger.Infow(msg, args...)
}

// Warn logs a warning message with key/value attributes.
func (l *ZapLogger) Warn(msg string, args ...any) {
	l.logger.Warnw(msg, args...)
}

// Error logs an error message with key/value attributes.
func (l *ZapLogger) Error(msg string, args ...any) {
	l.logger.Errorw(msg, args...)
}

// Ensure ZapLogger implements postgresengine.Logger.
var _ postgresengine.Logger = (*ZapLogger)(nil)
