// Package policy evaluates the organization booking policy gates. The
// nullable persisted fields are converted into tagged variants at the
// boundary so the engine never branches on raw pointers.
package policy

import (
	"time"

	apperrors "bookwell/pkg/errors"
	"bookwell/pkg/model"
)

// Allowance is either unlimited or capped at a fixed number of active
// bookings across the organization.
type Allowance struct {
	limited bool
	limit   int
}

func Unlimited() Allowance {
	return Allowance{}
}

func Limited(n int) Allowance {
	return Allowance{limited: true, limit: n}
}

// AllowanceFromPtr converts the persisted nullable field. Nil means
// unlimited.
func AllowanceFromPtr(p *int) Allowance {
	if p == nil {
		return Unlimited()
	}
	return Limited(*p)
}

func (a Allowance) Limited() bool {
	return a.limited
}

func (a Allowance) Limit() int {
	return a.limit
}

// ChangeWindow restricts status changes close to the booking start.
type ChangeWindow struct {
	restricted bool
	hours      int
}

func Unrestricted() ChangeWindow {
	return ChangeWindow{}
}

func Hours(n int) ChangeWindow {
	return ChangeWindow{restricted: true, hours: n}
}

// ChangeWindowFromPtr converts the persisted nullable field. Nil means
// unrestricted.
func ChangeWindowFromPtr(p *int) ChangeWindow {
	if p == nil {
		return Unrestricted()
	}
	return Hours(*p)
}

// CheckAllowance gates booking creation on the client's organization-wide
// active booking count. The gate applies only when the organization
// requires membership; active includes every status except CANCELLED, so
// cancelling a booking frees allowance.
func CheckAllowance(required bool, a Allowance, active int64) error {
	if !required {
		return nil
	}
	if !a.limited {
		return nil
	}
	if active >= int64(a.limit) {
		return apperrors.AllowanceExhausted("Session allowance exhausted for this organization")
	}
	return nil
}

// CheckChangeWindow gates status changes that happen too close to the
// booking start. No-op transitions and cancellations are always exempt.
func CheckChangeWindow(w ChangeWindow, current, target model.BookingStatus, start, now time.Time) error {
	if target == current {
		return nil
	}
	if target == model.StatusCancelled {
		return nil
	}
	if !w.restricted {
		return nil
	}

	hoursUntil := start.Sub(now).Hours()
	if hoursUntil < float64(w.hours) {
		return apperrors.ChangeWindow(w.hours)
	}
	return nil
}
