package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Pipeline errors
const (
	// ErrCodeStageClosed indicates an item was pushed into a closed stage.
	ErrCodeStageClosed ErrorCode = "STAGE_CLOSED"
	// ErrCodeNotPrimed indicates an item was pushed into a stage before priming.
	ErrCodeNotPrimed ErrorCode = "STAGE_NOT_PRIMED"
	// ErrCodeIO indicates an input or output handle failed.
	ErrCodeIO ErrorCode = "IO_ERROR"
	// ErrCodeInjectedFault indicates an error delivered through fault injection.
	ErrCodeInjectedFault ErrorCode = "INJECTED_FAULT"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeConflict indicates a conflict with the current state of the resource.
	ErrCodeConflict ErrorCode = "CONFLICT"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Internal errors
const (
	// ErrCodeTimeout indicates an operation did not finish in time.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout: true,
	ErrCodeIO:      true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
