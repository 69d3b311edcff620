package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a malformed request (missing project, empty SQL,
	// bad parameter values) detected before any backend work happens.
	ErrValidation = errors.New("validation failed")

	// ErrUnknownDialect indicates a dialect outside the fixed enum.
	ErrUnknownDialect = errors.New("unknown dialect")

	// ErrBackendUnavailable indicates a connection pool could not be
	// established or pinged. Distinct from a query the engine rejected.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrUnparseableIdentifier indicates the isolation rewriter could not
	// unambiguously parse an identifier (malformed quoting) and refused to
	// guess.
	ErrUnparseableIdentifier = errors.New("unparseable identifier")

	// ErrTimeout indicates the backend round trip exceeded the execution
	// deadline.
	ErrTimeout = errors.New("execution timed out")
)

// ExecutionError carries the backend's verbatim rejection message so the
// caller can distinguish "your SQL was rejected" from infrastructure faults.
type ExecutionError struct {
	Dialect string
	Message string
}

func (e *ExecutionError) Error() string {
	if e.Dialect == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Dialect, e.Message)
}

// NewExecutionError wraps a backend error, preserving its message verbatim.
func NewExecutionError(dialect string, err error) *ExecutionError {
	return &ExecutionError{Dialect: dialect, Message: err.Error()}
}

// IsExecutionError reports whether err is (or wraps) a backend rejection.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}
