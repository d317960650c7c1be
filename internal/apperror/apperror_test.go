package apperror

import (
	"errors"
	"net/http"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: "test_error", Message: "Test error message", StatusCode: http.StatusBadRequest}
	if got := err.Error(); got != "Test error message" {
		t.Errorf("Error() = %q, want %q", got, "Test error message")
	}
}

func TestError_Unwrap(t *testing.T) {
	innerErr := errors.New("inner error")
	err := &Error{Code: "wrapped_error", Message: "Wrapped error", Internal: innerErr}
	if got := err.Unwrap(); got != innerErr {
		t.Errorf("Unwrap() = %v, want %v", got, innerErr)
	}
}

func TestNew(t *testing.T) {
	err := New("custom_code", "Custom message", http.StatusTeapot)
	if err.Code != "custom_code" || err.Message != "Custom message" || err.StatusCode != http.StatusTeapot {
		t.Errorf("unexpected error fields: %+v", err)
	}
}

func TestWrap(t *testing.T) {
	innerErr := errors.New("database error")
	wrapped := Wrap(innerErr, ErrInternal)
	if wrapped.Code != ErrInternal.Code || wrapped.Internal != innerErr {
		t.Errorf("unexpected wrapped error: %+v", wrapped)
	}
	if !errors.Is(wrapped, innerErr) {
		t.Error("errors.Is should return true for wrapped inner error")
	}
}

func TestWrapWithMessage(t *testing.T) {
	innerErr := errors.New("connection refused")
	wrapped := WrapWithMessage(innerErr, "db_error", "Database connection failed", http.StatusServiceUnavailable)
	if wrapped.Code != "db_error" || wrapped.Message != "Database connection failed" || wrapped.StatusCode != http.StatusServiceUnavailable || wrapped.Internal != innerErr {
		t.Errorf("unexpected wrapped error: %+v", wrapped)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target *Error
		want   bool
	}{
		{"matching error", ErrNotFound, ErrNotFound, true},
		{"wrapped matching error", Wrap(errors.New("inner"), ErrNotFound), ErrNotFound, true},
		{"non-matching error", ErrAuthMissing, ErrNotFound, false},
		{"non-apperror", errors.New("regular error"), ErrNotFound, false},
		{"nil error", nil, ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.target); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrNotFound, http.StatusNotFound},
		{"auth missing", ErrAuthMissing, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"input invalid", ErrInputInvalid, http.StatusBadRequest},
		{"quota exceeded", ErrQuotaExceeded, http.StatusPaymentRequired},
		{"internal", ErrInternal, http.StatusInternalServerError},
		{"upstream unavailable", ErrUpstreamUnavailable, http.StatusBadGateway},
		{"non-apperror defaults to 500", errors.New("regular error"), http.StatusInternalServerError},
		{"wrapped error preserves code", Wrap(errors.New("inner"), ErrNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSafeMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", ErrNotFound, ErrNotFound.Message},
		{"auth missing", ErrAuthMissing, ErrAuthMissing.Message},
		{"custom error", New("test", "Custom message", 400), "Custom message"},
		{"non-apperror returns internal message", errors.New("db error"), ErrInternal.Message},
		{"nil error returns internal message", nil, ErrInternal.Message},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeMessage(tt.err); got != tt.want {
				t.Errorf("SafeMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", ErrNotFound, "not_found"},
		{"auth missing", ErrAuthMissing, "auth_missing"},
		{"forbidden", ErrForbidden, "forbidden"},
		{"input invalid", ErrInputInvalid, "input_invalid"},
		{"internal", ErrInternal, "internal_error"},
		{"custom", New("custom_code", "message", 400), "custom_code"},
		{"non-apperror", errors.New("regular"), "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Code(tt.err); got != tt.want {
				t.Errorf("Code() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is retryable", nil, true},
		{"regular error is retryable", errors.New("timeout"), true},
		{"retryable apperror", WithRetryable(ErrInternal, true), true},
		{"non-retryable apperror", WithRetryable(ErrInputInvalid, false), false},
		{"default apperror without flag is not retryable", ErrInputInvalid, false},
		{"transient is retryable by default", ErrTransient, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       *Error
		retryable bool
	}{
		{"set retryable true", ErrInternal, true},
		{"set retryable false", ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := WithRetryable(tt.err, tt.retryable)
			if result.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", result.Retryable, tt.retryable)
			}
			if result.Code != tt.err.Code || result.Message != tt.err.Message || result.StatusCode != tt.err.StatusCode {
				t.Errorf("WithRetryable should preserve other fields, got %+v want base %+v", result, tt.err)
			}
		})
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *Error
		wantCode   string
		wantStatus int
	}{
		{"ErrNotFound", ErrNotFound, "not_found", http.StatusNotFound},
		{"ErrAuthMissing", ErrAuthMissing, "auth_missing", http.StatusUnauthorized},
		{"ErrForbidden", ErrForbidden, "forbidden", http.StatusForbidden},
		{"ErrInputInvalid", ErrInputInvalid, "input_invalid", http.StatusBadRequest},
		{"ErrQuotaExceeded", ErrQuotaExceeded, "quota_exceeded", http.StatusPaymentRequired},
		{"ErrInfected", ErrInfected, "infected", http.StatusUnprocessableEntity},
		{"ErrUpstreamUnavailable", ErrUpstreamUnavailable, "upstream_unavailable", http.StatusBadGateway},
		{"ErrMessageMalformed", ErrMessageMalformed, "message_malformed", http.StatusBadRequest},
		{"ErrTransient", ErrTransient, "transient", http.StatusServiceUnavailable},
		{"ErrInternal", ErrInternal, "internal_error", http.StatusInternalServerError},
		{"ErrStorageUploadFailed", ErrStorageUploadFailed, "storage_upload_failed", http.StatusInternalServerError},
		{"ErrStorageDownloadFailed", ErrStorageDownloadFailed, "storage_download_failed", http.StatusInternalServerError},
		{"ErrWebhookDeliveryFailed", ErrWebhookDeliveryFailed, "webhook_delivery_failed", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("%s.Code = %q, want %q", tt.name, tt.err.Code, tt.wantCode)
			}
			if tt.err.StatusCode != tt.wantStatus {
				t.Errorf("%s.StatusCode = %d, want %d", tt.name, tt.err.StatusCode, tt.wantStatus)
			}
			if tt.err.Message == "" {
				t.Errorf("%s.Message should not be empty", tt.name)
			}
		})
	}
}
