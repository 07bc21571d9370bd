package errors

import "fmt"

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Operator input rejected before any request is sent
	ErrCodeValidation ErrorCode = "VALIDATION"
	ErrCodeUsage      ErrorCode = "USAGE"

	// Upstream answered status:error
	ErrCodeApplication    ErrorCode = "APPLICATION"
	ErrCodeSessionExpired ErrorCode = "SESSION_EXPIRED"

	// Request never produced a usable answer
	ErrCodeTransport   ErrorCode = "TRANSPORT"
	ErrCodeTooLarge    ErrorCode = "TOO_LARGE"
	ErrCodeBadResponse ErrorCode = "BAD_RESPONSE"

	// Controller state
	ErrCodeBusy     ErrorCode = "BUSY"
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Configuration errors
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with context
type Error struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new Error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an Error
func Wrap(err error, code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error carries a specific code anywhere in its chain
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode extracts the outermost error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	e, ok := err.(*Error)
	if !ok {
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return e.Code
}

// MessageOf returns the operator-facing message of err, or err.Error()
// when err carries no code.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	for cur := err; cur != nil; {
		if e, ok := cur.(*Error); ok {
			return e.Message
		}
		u, ok := cur.(interface{ Unwrap() error })
		if !ok {
			break
		}
		cur = u.Unwrap()
	}
	return err.Error()
}
