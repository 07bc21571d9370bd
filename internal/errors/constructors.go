package errors

import "fmt"

// Operator-facing messages.
const (
	MsgTooLarge      = "This file exceeds the maximum size."
	MsgNotPOFile     = "File type not allowed.\nExpected a *.po file."
	MsgInvalidModule = "You must specify a valid module via the \"module\" parameter."
	msgUnexpected    = "An error occured:\n\n"
)

// NotPOFile creates the validation error for a local file without a .po suffix
func NotPOFile(name string) *Error {
	return New(ErrCodeValidation, MsgNotPOFile).
		WithDetail("name", name)
}

// InvalidModule creates the usage error for a named-file request without a valid module
func InvalidModule(module string) *Error {
	return New(ErrCodeUsage, MsgInvalidModule).
		WithDetail("module", module)
}

// Application creates an error for an upstream status:error answer
func Application(action, message string) *Error {
	return New(ErrCodeApplication, message).
		WithDetail("action", action)
}

// SessionExpired creates the error for a keep-alive refused by the upstream
func SessionExpired(message string) *Error {
	return New(ErrCodeSessionExpired, message)
}

// TooLarge creates the error for an upload the transport refused
func TooLarge(cause error) *Error {
	return Wrap(cause, ErrCodeTooLarge, MsgTooLarge)
}

// Transport creates a connectivity-level failure error
func Transport(action string, cause error) *Error {
	return Wrap(cause, ErrCodeTransport, msgUnexpected+cause.Error()).
		WithDetail("action", action)
}

// BadResponse creates an error for an answer that is neither ok nor error
func BadResponse(action string, status int, body string) *Error {
	return New(ErrCodeBadResponse, msgUnexpected+body).
		WithDetail("action", action).
		WithDetail("httpStatus", status)
}

// Busy creates the error returned while another operation holds the controls
func Busy(op string) *Error {
	return New(ErrCodeBusy, fmt.Sprintf("%s already in progress", op)).
		WithDetail("operation", op)
}

// NotFound creates a lookup failure error
func NotFound(kind, id string) *Error {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found: %s", kind, id)).
		WithDetail(kind, id)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *Error {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}
