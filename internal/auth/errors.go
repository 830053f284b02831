package auth

import (
	"errors"

	"github.com/desertthunder/readx/internal/shared"
)

// Code identifies an identity failure.
type Code string

const (
	CodeInvalidCredential Code = "invalid-credential"
	CodeWrongPassword     Code = "wrong-password"
	CodeUserNotFound      Code = "user-not-found"
	CodeEmailInUse        Code = "email-already-in-use"
	CodeInvalidEmail      Code = "invalid-email"
	CodeWeakPassword      Code = "weak-password"
	CodeTooManyRequests   Code = "too-many-requests"
	CodeInvalidToken      Code = "invalid-token"
)

var messages = map[Code]string{
	CodeInvalidCredential: "Invalid email or password",
	CodeWrongPassword:     "Invalid email or password",
	CodeUserNotFound:      "Invalid email or password",
	CodeTooManyRequests:   "Too many attempts. Try again later",
	CodeEmailInUse:        "This email is already registered",
	CodeInvalidEmail:      "Invalid email address",
	CodeWeakPassword:      "Password should be at least 6 characters",
	CodeInvalidToken:      "Your session has expired. Please sign in again",
}

// Error is a coded identity failure.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Unwrap maps codes onto the shared sentinels so HTTP and CLI layers can use errors.Is.
func (e *Error) Unwrap() error {
	switch e.Code {
	case CodeEmailInUse:
		return shared.ErrEmailTaken
	case CodeInvalidEmail, CodeWeakPassword:
		return shared.ErrValidation
	case CodeTooManyRequests:
		return shared.ErrServiceUnavailable
	default:
		return shared.ErrNotAuthenticated
	}
}

func newError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Message returns the user-facing sentence for err. Unmapped codes and other errors fall back to the
// raw message.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe.First()
	}

	var ae *Error
	if errors.As(err, &ae) {
		if msg, ok := messages[ae.Code]; ok {
			return msg
		}
		return ae.Message
	}
	return err.Error()
}

// CodeOf extracts the identity code from err, or "".
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
