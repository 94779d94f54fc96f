package conversation

import (
	"errors"
	"fmt"
)

var (
	// ErrMessageNotFound indicates the referenced conversation row does not exist.
	ErrMessageNotFound = errors.New("conversation: message not found")

	// ErrMalformedAction indicates the model sent arguments that fail strict
	// validation for the named action. Recovered locally, never retried.
	ErrMalformedAction = errors.New("conversation: malformed action arguments")

	// ErrUnknownAction indicates the model requested an action we do not declare.
	ErrUnknownAction = errors.New("conversation: unknown action")
)

// TransientError marks a failure as retryable by the job runner. The queue
// keeps the message and redelivers it after the visibility timeout.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("conversation: transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// MarkTransient wraps err so the worker retries instead of dropping the job.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err (or anything it wraps) is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
