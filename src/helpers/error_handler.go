package helpers

import (
	"context"
	"fmt"
	"time"

	"market-aggregator/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type AggregatorError struct {
	Message string
	Cause   error
}

func (e *AggregatorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AggregatorError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As at call sites
type ConfigurationError struct{ AggregatorError }
type DataSourceError struct{ AggregatorError }
type PublishError struct{ AggregatorError }
type StorageError struct{ AggregatorError }
type ValidationError struct{ AggregatorError }

// -----------------------------------------------------------------------------

func NewConfigurationError(cause error, format string, args ...interface{}) error {
	return &ConfigurationError{AggregatorError{Message: fmt.Sprintf(format, args...), Cause: cause}}
}

func NewDataSourceError(cause error, format string, args ...interface{}) error {
	return &DataSourceError{AggregatorError{Message: fmt.Sprintf(format, args...), Cause: cause}}
}

func NewPublishError(cause error, format string, args ...interface{}) error {
	return &PublishError{AggregatorError{Message: fmt.Sprintf(format, args...), Cause: cause}}
}

func NewStorageError(cause error, format string, args ...interface{}) error {
	return &StorageError{AggregatorError{Message: fmt.Sprintf(format, args...), Cause: cause}}
}

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{AggregatorError{Message: fmt.Sprintf(format, args...)}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

var retryLogger = logger.NewLogger(nil, "Retry")

// RetryWithBackoff runs fn up to maxRetries times, doubling baseDelay after
// every failure. It gives up early when ctx is done.
func RetryWithBackoff(ctx context.Context, operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		retryLogger.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, maxRetries, lastErr)
}
