package policy

import (
	"testing"
	"time"

	apperrors "bookwell/pkg/errors"
	"bookwell/pkg/model"
)

func TestAllowanceFromPtr(t *testing.T) {
	if AllowanceFromPtr(nil).Limited() {
		t.Error("nil pointer should produce an unlimited allowance")
	}

	three := 3
	a := AllowanceFromPtr(&three)
	if !a.Limited() || a.Limit() != 3 {
		t.Errorf("expected Limited(3), got limited=%v limit=%d", a.Limited(), a.Limit())
	}
}

func TestCheckAllowance(t *testing.T) {
	tests := []struct {
		name     string
		required bool
		a        Allowance
		active   int64
		wantErr  bool
	}{
		{
			name:     "membership not required bypasses the gate",
			required: false,
			a:        Limited(1),
			active:   100,
			wantErr:  false,
		},
		{
			name:     "unlimited allowance never exhausts",
			required: true,
			a:        Unlimited(),
			active:   1000,
			wantErr:  false,
		},
		{
			name:     "below limit passes",
			required: true,
			a:        Limited(3),
			active:   2,
			wantErr:  false,
		},
		{
			name:     "at limit rejects",
			required: true,
			a:        Limited(3),
			active:   3,
			wantErr:  true,
		},
		{
			name:     "over limit rejects",
			required: true,
			a:        Limited(3),
			active:   4,
			wantErr:  true,
		},
		{
			name:     "zero limit rejects immediately",
			required: true,
			a:        Limited(0),
			active:   0,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckAllowance(tt.required, tt.a, tt.active)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckAllowance() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperrors.IsCode(err, apperrors.CodeAllowanceExhausted) {
				t.Errorf("expected ALLOWANCE_EXHAUSTED code, got %v", err)
			}
		})
	}
}

func TestCheckChangeWindow(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		w       ChangeWindow
		current model.BookingStatus
		target  model.BookingStatus
		start   time.Time
		wantErr bool
	}{
		{
			name:    "same status is a no-op",
			w:       Hours(24),
			current: model.StatusConfirmed,
			target:  model.StatusConfirmed,
			start:   now.Add(1 * time.Hour),
			wantErr: false,
		},
		{
			name:    "cancellation is always exempt",
			w:       Hours(24),
			current: model.StatusConfirmed,
			target:  model.StatusCancelled,
			start:   now.Add(1 * time.Hour),
			wantErr: false,
		},
		{
			name:    "unrestricted window never rejects",
			w:       Unrestricted(),
			current: model.StatusPending,
			target:  model.StatusConfirmed,
			start:   now.Add(1 * time.Minute),
			wantErr: false,
		},
		{
			name:    "inside the window rejects",
			w:       Hours(24),
			current: model.StatusPending,
			target:  model.StatusConfirmed,
			start:   now.Add(10 * time.Hour),
			wantErr: true,
		},
		{
			name:    "outside the window passes",
			w:       Hours(24),
			current: model.StatusPending,
			target:  model.StatusConfirmed,
			start:   now.Add(48 * time.Hour),
			wantErr: false,
		},
		{
			name:    "exactly at the boundary passes",
			w:       Hours(24),
			current: model.StatusPending,
			target:  model.StatusConfirmed,
			start:   now.Add(24 * time.Hour),
			wantErr: false,
		},
		{
			name:    "booking already started rejects non-cancel changes",
			w:       Hours(1),
			current: model.StatusConfirmed,
			target:  model.StatusNoShow,
			start:   now.Add(-1 * time.Hour),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckChangeWindow(tt.w, tt.current, tt.target, tt.start, now)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckChangeWindow() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperrors.IsCode(err, apperrors.CodeChangeWindow) {
				t.Errorf("expected CHANGE_WINDOW code, got %v", err)
			}
		})
	}
}
