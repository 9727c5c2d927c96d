package model

import "time"

// BookingStatus is the lifecycle state of a reservation. CANCELLED,
// COMPLETED and NO_SHOW are terminal; cancellation is irreversible and
// permanently excluded from capacity and allowance counts.
type BookingStatus string

const (
	StatusPending   BookingStatus = "PENDING"
	StatusConfirmed BookingStatus = "CONFIRMED"
	StatusCancelled BookingStatus = "CANCELLED"
	StatusCompleted BookingStatus = "COMPLETED"
	StatusNoShow    BookingStatus = "NO_SHOW"
)

// ValidStatuses lists every status accepted on a status change request.
var ValidStatuses = []BookingStatus{
	StatusPending,
	StatusConfirmed,
	StatusCancelled,
	StatusCompleted,
	StatusNoShow,
}

func (s BookingStatus) Valid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Active reports whether the booking counts toward capacity and
// allowance. Everything except CANCELLED is active.
func (s BookingStatus) Active() bool {
	return s != StatusCancelled
}

// Booking is a reservation of one concrete occurrence. Exactly one of
// SpaceID and SessionID is set: session bookings conflict on the exact
// (start, end) slot, space bookings conflict on any overlap.
// CheckedIn is orthogonal to Status and flips to true at most once.
type Booking struct {
	ID             string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	OrganizationID string        `json:"organization_id" bson:"organization_id" validate:"required,mongodb"`
	SessionID      string        `json:"session_id,omitempty" bson:"session_id,omitempty" validate:"omitempty,mongodb"`
	SpaceID        string        `json:"space_id,omitempty" bson:"space_id,omitempty" validate:"omitempty,mongodb"`
	ClientID       string        `json:"client_id" bson:"client_id" validate:"required,mongodb"`
	StartTime      time.Time     `json:"start_time" bson:"start_time" validate:"required"`
	EndTime        time.Time     `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Status         BookingStatus `json:"status" bson:"status" validate:"required,oneof=PENDING CONFIRMED CANCELLED COMPLETED NO_SHOW"`
	CheckedIn      bool          `json:"checked_in" bson:"checked_in"`
	CheckedInAt    *time.Time    `json:"checked_in_at,omitempty" bson:"checked_in_at,omitempty"`
	Notes          string        `json:"notes,omitempty" bson:"notes,omitempty" validate:"omitempty,max=1000"`
	CreatedAt      time.Time     `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt      time.Time     `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// BookingInput is the creation payload. The owning organization is
// resolved from the target session or space, never trusted from input.
type BookingInput struct {
	SessionID string    `json:"session_id,omitempty" validate:"omitempty,mongodb"`
	SpaceID   string    `json:"space_id,omitempty" validate:"omitempty,mongodb"`
	ClientID  string    `json:"client_id" validate:"required,mongodb"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	Notes     string    `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type StatusChange struct {
	Status BookingStatus `json:"status" validate:"required,oneof=PENDING CONFIRMED CANCELLED COMPLETED NO_SHOW"`
}
