// Package common provides shared constants, types, and utilities
// used across the Next Generation Tracker client.
package common

import (
	"errors"
	"fmt"
)

// Sentinel errors.
// These can be checked with errors.Is() for proper error handling.
var (
	// Session errors.
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrNoProfile    = errors.New("no usable profile")
	ErrTokenExpired = errors.New("session token expired")

	// Startup errors.
	ErrClosedPrematurely = errors.New("window closed prematurely")
	ErrCancelled         = errors.New("operation cancelled")

	// Credential errors.
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrEncryption          = errors.New("encryption error")
	ErrDecryption          = errors.New("decryption error")

	// Configuration errors.
	ErrConfigLoad = errors.New("failed to load configuration")
	ErrConfigSave = errors.New("failed to save configuration")

	// Telemetry errors.
	ErrFeedClosed = errors.New("telemetry feed closed")
)

// ErrorKind classifies failures surfaced to the user.
type ErrorKind int

const (
	// KindValidation is a local form error caught before any request.
	KindValidation ErrorKind = iota
	// KindConnectionRefused means the backend could not be reached at all.
	KindConnectionRefused
	// KindUnknownTransport covers every other transport or decoding failure.
	KindUnknownTransport
	// KindServerBusiness is a success=false answer carrying a server message.
	KindServerBusiness
)

// String returns a human-readable representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConnectionRefused:
		return "connection refused"
	case KindUnknownTransport:
		return "unknown transport"
	case KindServerBusiness:
		return "server"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Message is what the user should see.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified error.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the kind of err, defaulting to KindUnknownTransport for
// errors that were never classified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknownTransport
}

// UserMessage maps err to the text shown next to a form.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return MsgUnknownError
	}
	switch e.Kind {
	case KindValidation, KindServerBusiness:
		return e.Message
	case KindConnectionRefused:
		return MsgConnectionRefused
	case KindUnknownTransport:
		return MsgUnknownError
	}
	return MsgUnknownError
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
