package apperror

import (
	"errors"
	"fmt"
)

// Kind is the stable, client-visible classification of a failure.
type Kind string

const (
	KindValidation          Kind = "validation_error"
	KindUnsupportedMedia    Kind = "unsupported_media_type"
	KindPayloadTooLarge     Kind = "payload_too_large"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindUnauthorizedWebhook Kind = "unauthorized_webhook"
	KindUnauthorized        Kind = "unauthorized"
	KindForbidden           Kind = "forbidden"
	KindPipelineFailure     Kind = "pipeline_failure"
	KindTimeout             Kind = "timeout"
	KindPreconditionFailed  Kind = "precondition_failed"
	KindInternal            Kind = "internal"
)

// Error carries a Kind, a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
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

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error { return New(KindValidation, message) }
func UnsupportedMedia(message string) *Error { return New(KindUnsupportedMedia, message) }
func PayloadTooLarge(message string) *Error { return New(KindPayloadTooLarge, message) }
func NotFound(message string) *Error { return New(KindNotFound, message) }
func Conflict(message string) *Error { return New(KindConflict, message) }
func UnauthorizedWebhook(message string) *Error { return New(KindUnauthorizedWebhook, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func Forbidden(message string) *Error { return New(KindForbidden, message) }
func PreconditionFailed(message string) *Error { return New(KindPreconditionFailed, message) }

func PipelineFailure(message string, err error) *Error {
	return Wrap(KindPipelineFailure, message, err)
}

func Timeout(message string, err error) *Error {
	return Wrap(KindTimeout, message, err)
}

func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// KindOf reports the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the client-facing message for err.
// Errors outside the taxonomy never leak their text.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
