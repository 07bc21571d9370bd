package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	err := New(ErrCodeApplication, "module not found")
	assert.Equal(t, ErrCodeApplication, err.Code)
	assert.Equal(t, "APPLICATION: module not found", err.Error())

	cause := fmt.Errorf("connection refused")
	wrapped := Wrap(cause, ErrCodeTransport, "spawn failed")
	assert.Equal(t, cause, wrapped.Unwrap())
	assert.True(t, Is(wrapped, ErrCodeTransport))
	assert.False(t, Is(wrapped, ErrCodeApplication))

	detailed := err.WithDetail("module", "shell")
	assert.Equal(t, "shell", detailed.Details["module"])
}

func TestGetCodeThroughFmtWrap(t *testing.T) {
	inner := Busy("upload")
	outer := fmt.Errorf("tab 1234: %w", inner)

	assert.Equal(t, ErrCodeBusy, GetCode(outer))
	assert.Equal(t, "upload already in progress", MessageOf(outer))
	assert.Equal(t, ErrorCode(""), GetCode(nil))
	assert.Equal(t, ErrorCode(""), GetCode(fmt.Errorf("plain")))
	assert.Equal(t, "plain", MessageOf(fmt.Errorf("plain")))
}

func TestConstructors(t *testing.T) {
	err := NotPOFile("translation.txt")
	assert.Equal(t, ErrCodeValidation, err.Code)
	assert.Equal(t, "translation.txt", err.Details["name"])

	err = TooLarge(fmt.Errorf("413"))
	assert.Equal(t, MsgTooLarge, err.Message)

	err = BadResponse("spawn", 500, "<html>")
	assert.Equal(t, "An error occured:\n\n<html>", err.Message)
	assert.Equal(t, 500, err.Details["httpStatus"])

	err = InvalidModule("nope")
	assert.Equal(t, ErrCodeUsage, err.Code)
}
