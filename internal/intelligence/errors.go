package intelligence

import (
	"errors"
	"fmt"
)

// ErrOperationFailed is the sentinel wrapped by all OperationError values.
var ErrOperationFailed = errors.New("intelligence operation failed")

// ErrUnreachable indicates the service could not be reached or returned a
// non-OK transport status.
var ErrUnreachable = errors.New("intelligence service unreachable")

// OperationError carries the structured error the service reports when an
// operation completes unsuccessfully (e.g. ENCRYPTED_PDF, SCANNED_PDF).
type OperationError struct {
	Code    string
	Message string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap allows errors.Is(err, ErrOperationFailed) checks.
func (e *OperationError) Unwrap() error {
	return ErrOperationFailed
}
