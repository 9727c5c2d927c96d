package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity)

	if err.Code != CodeValidation {
		t.Errorf("expected code %s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %s", err.Message)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, err.HTTPStatus)
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name: "without underlying error",
			appErr: &AppError{
				Code:    CodeNotFound,
				Message: "resource not found",
			},
			expected: "NOT_FOUND: resource not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("database connection failed"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: database connection failed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appErr.Error()
			if got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := Internal("wrapped", originalErr)

	unwrapped := errors.Unwrap(appErr)
	if unwrapped != originalErr {
		t.Errorf("Unwrap() should return original error")
	}
}

func TestCapacityFull(t *testing.T) {
	err := CapacityFull("Session is fully booked for this slot")

	if err.Code != CodeCapacityFull {
		t.Errorf("expected code %s, got %s", CodeCapacityFull, err.Code)
	}
	if err.HTTPStatus != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, err.HTTPStatus)
	}
}

func TestAllowanceExhausted(t *testing.T) {
	err := AllowanceExhausted("No available session slots")

	if err.Code != CodeAllowanceExhausted {
		t.Errorf("expected code %s, got %s", CodeAllowanceExhausted, err.Code)
	}
	if err.HTTPStatus != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, err.HTTPStatus)
	}
}

func TestChangeWindow_IncludesThreshold(t *testing.T) {
	err := ChangeWindow(24)

	if err.Code != CodeChangeWindow {
		t.Errorf("expected code %s, got %s", CodeChangeWindow, err.Code)
	}
	if err.Details["change_hours"] != 24 {
		t.Errorf("expected change_hours detail 24, got %v", err.Details["change_hours"])
	}
	want := "Bookings can only be changed 24 hours or more before the session starts"
	if err.Message != want {
		t.Errorf("Message = %q, want %q", err.Message, want)
	}
}

func TestAlreadyCheckedIn(t *testing.T) {
	err := AlreadyCheckedIn("abc123")

	if err.Code != CodeAlreadyCheckedIn {
		t.Errorf("expected code %s, got %s", CodeAlreadyCheckedIn, err.Code)
	}
	if err.Details["booking_id"] != "abc123" {
		t.Errorf("expected booking_id detail 'abc123', got %v", err.Details["booking_id"])
	}
}

func TestIsCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{"matching code", CapacityFull("full"), CodeCapacityFull, true},
		{"different code", CapacityFull("full"), CodeNotFound, false},
		{"plain error", errors.New("boom"), CodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCode(tt.err, tt.code); got != tt.want {
				t.Errorf("IsCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("Booking")
	if AsAppError(appErr) != appErr {
		t.Errorf("AsAppError should return the same AppError")
	}

	plain := errors.New("boom")
	converted := AsAppError(plain)
	if converted.Code != CodeInternal {
		t.Errorf("expected plain errors to convert to %s, got %s", CodeInternal, converted.Code)
	}
	if errors.Unwrap(converted) != plain {
		t.Errorf("converted error should wrap the original")
	}
}
