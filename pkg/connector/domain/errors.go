package domain

import (
	"fmt"
	"time"
)

// Connector domain errors.

// ErrConnectionFailed reports a failed connection attempt.
type ErrConnectionFailed struct {
	ConnectorType string
	Reason        string
}

func (e *ErrConnectionFailed) Error() string {
	return fmt.Sprintf("connector %s: connection failed: %s", e.ConnectorType, e.Reason)
}

// ErrUnsupportedOperation reports an operation the connector does not
// implement, such as requesting an XA connection from a non-XA connector.
type ErrUnsupportedOperation struct {
	ConnectorType string
	Operation     string
}

func (e *ErrUnsupportedOperation) Error() string {
	return fmt.Sprintf("connector %s does not support %s", e.ConnectorType, e.Operation)
}

// ErrExecutionFailed wraps a backend error raised while executing one
// atomic request.
type ErrExecutionFailed struct {
	RequestID AtomicRequestID
	Cause     error
}

func (e *ErrExecutionFailed) Error() string {
	return fmt.Sprintf("request %s: execution failed: %v", e.RequestID, e.Cause)
}

func (e *ErrExecutionFailed) Unwrap() error { return e.Cause }

// ErrMaxRowsExceeded reports that a request produced more rows than the
// binding's configured limit, when the limit is configured as a hard error.
type ErrMaxRowsExceeded struct {
	RequestID AtomicRequestID
	Limit     int
}

func (e *ErrMaxRowsExceeded) Error() string {
	return fmt.Sprintf("request %s exceeded the maximum of %d result rows", e.RequestID, e.Limit)
}

// DataNotAvailableError is not a failure. A cooperative execution returns
// it from NextBatch to release its worker thread; the work item re-polls
// after RetryDelay.
type DataNotAvailableError struct {
	RetryDelay time.Duration
}

func (e *DataNotAvailableError) Error() string {
	return fmt.Sprintf("data not available, retry in %s", e.RetryDelay)
}
