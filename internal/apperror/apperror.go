// Package apperror defines the typed application error used across the
// serving layer and every stage worker, mapping the pipeline's error kinds
// onto HTTP status codes and a retryable flag.
package apperror

import (
	"errors"
	"net/http"
)

type Error struct {
	Code       string
	Message    string
	StatusCode int
	Internal   error
	Retryable  bool
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Internal
}

var (
	ErrNotFound = &Error{
		Code:       "not_found",
		Message:    "The requested resource was not found",
		StatusCode: http.StatusNotFound,
	}

	ErrAuthMissing = &Error{
		Code:       "auth_missing",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrForbidden = &Error{
		Code:       "forbidden",
		Message:    "You don't have permission to access this resource",
		StatusCode: http.StatusForbidden,
	}

	ErrInputInvalid = &Error{
		Code:       "input_invalid",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrQuotaExceeded = &Error{
		Code:       "quota_exceeded",
		Message:    "Storage or transfer quota exceeded",
		StatusCode: http.StatusPaymentRequired,
	}

	// ErrInfected never crosses an HTTP boundary directly; the scan worker
	// uses it internally before translating to a status-queue(failed) event.
	ErrInfected = &Error{
		Code:       "infected",
		Message:    "File failed virus scan",
		StatusCode: http.StatusUnprocessableEntity,
	}

	ErrUpstreamUnavailable = &Error{
		Code:       "upstream_unavailable",
		Message:    "A required upstream service is unavailable",
		StatusCode: http.StatusBadGateway,
		Retryable:  true,
	}

	// ErrMessageMalformed marks a queue message that should be dropped and
	// logged rather than requeued; redelivering it cannot help.
	ErrMessageMalformed = &Error{
		Code:       "message_malformed",
		Message:    "Queue message could not be decoded",
		StatusCode: http.StatusBadRequest,
	}

	// ErrTransient marks a failure that should be left on the queue for
	// redelivery after the visibility window elapses.
	ErrTransient = &Error{
		Code:       "transient",
		Message:    "Temporary failure, will be retried",
		StatusCode: http.StatusServiceUnavailable,
		Retryable:  true,
	}

	ErrInternal = &Error{
		Code:       "internal_error",
		Message:    "An unexpected error occurred",
		StatusCode: http.StatusInternalServerError,
	}

	ErrStorageUploadFailed = &Error{
		Code:       "storage_upload_failed",
		Message:    "Failed to upload object to storage",
		StatusCode: http.StatusInternalServerError,
		Retryable:  true,
	}

	ErrStorageDownloadFailed = &Error{
		Code:       "storage_download_failed",
		Message:    "Failed to download object from storage",
		StatusCode: http.StatusInternalServerError,
		Retryable:  true,
	}

	ErrWebhookDeliveryFailed = &Error{
		Code:       "webhook_delivery_failed",
		Message:    "Webhook delivery failed",
		StatusCode: http.StatusBadGateway,
		Retryable:  true,
	}
)

func New(code, message string, statusCode int) *Error {
	return &Error{Code: code, Message: message, StatusCode: statusCode}
}

func Wrap(err error, appErr *Error) *Error {
	return &Error{
		Code:       appErr.Code,
		Message:    appErr.Message,
		StatusCode: appErr.StatusCode,
		Internal:   err,
		Retryable:  appErr.Retryable,
	}
}

func WrapWithMessage(err error, code, message string, statusCode int) *Error {
	return &Error{Code: code, Message: message, StatusCode: statusCode, Internal: err}
}

func Is(err error, target *Error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

func StatusCode(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

func SafeMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ErrInternal.Message
}

func Code(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal.Code
}

// IsRetryable returns whether the failure should leave the queue message
// undeleted for redelivery rather than emitting a terminal failed event.
func IsRetryable(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return true
}

func WithRetryable(err *Error, retryable bool) *Error {
	return &Error{
		Code:       err.Code,
		Message:    err.Message,
		StatusCode: err.StatusCode,
		Internal:   err.Internal,
		Retryable:  retryable,
	}
}
