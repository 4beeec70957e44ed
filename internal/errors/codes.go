// Package errors defines structured error codes for task execution so hosts
// consuming the event stream can react to failures programmatically.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies a task failure.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates a malformed task.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeModelUnavailable indicates the embedding backend could not be
	// reached or validated.
	ErrCodeModelUnavailable ErrorCode = "MODEL_UNAVAILABLE"
	// ErrCodeQueueFull indicates the task queue rejected a submission.
	ErrCodeQueueFull ErrorCode = "QUEUE_FULL"
	// ErrCodeCancelled indicates the task was cancelled.
	ErrCodeCancelled ErrorCode = "CANCELLED"
	// ErrCodeTimeout indicates the task ran out of time.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInternal indicates an unexpected engine failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// TaskError is a structured task execution error.
type TaskError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *TaskError) Unwrap() error {
	return e.Cause
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(format string, args ...any) *TaskError {
	return &TaskError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// ModelUnavailable creates a model unavailable error.
func ModelUnavailable(msg string, cause error) *TaskError {
	return &TaskError{Code: ErrCodeModelUnavailable, Message: msg, Cause: cause}
}

// QueueFull creates a queue full error.
func QueueFull(msg string) *TaskError {
	return &TaskError{Code: ErrCodeQueueFull, Message: msg}
}

// Cancelled creates a cancellation error.
func Cancelled(msg string) *TaskError {
	return &TaskError{Code: ErrCodeCancelled, Message: msg}
}

// Internal wraps an unexpected failure.
func Internal(msg string, cause error) *TaskError {
	return &TaskError{Code: ErrCodeInternal, Message: msg, Cause: cause}
}

// CodeOf classifies an arbitrary error. TaskError codes pass through;
// context errors map to CANCELLED and TIMEOUT; everything else is INTERNAL.
func CodeOf(err error) ErrorCode {
	var taskErr *TaskError
	if stderrors.As(err, &taskErr) {
		return taskErr.Code
	}
	if stderrors.Is(err, context.Canceled) {
		return ErrCodeCancelled
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTimeout
	}
	return ErrCodeInternal
}
