package model

import "time"

// Organization is the tenant boundary. Every session, space, client and
// booking belongs to exactly one organization.
//
// BookingChangeHours and RequireMembership are the two booking policy
// fields. A nil BookingChangeHours means status changes are unrestricted.
type Organization struct {
	ID                 string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name               string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Slug               string    `json:"slug" bson:"slug" validate:"required,min=2,max=50,lowercase,excludesall= "`
	Email              string    `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	Phone              string    `json:"phone,omitempty" bson:"phone,omitempty" validate:"omitempty,e164"`
	BookingChangeHours *int      `json:"booking_change_hours" bson:"booking_change_hours" validate:"omitempty,min=0"`
	RequireMembership  bool      `json:"require_membership" bson:"require_membership"`
	CreatedAt          time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt          time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

type OrganizationUpdate struct {
	Name  string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty" validate:"omitempty,e164"`
}

// PolicyUpdate changes the organization's booking policy. Pointer fields
// distinguish "not provided" from explicit values; ClearChangeHours
// removes the change-window restriction entirely.
type PolicyUpdate struct {
	BookingChangeHours *int  `json:"booking_change_hours,omitempty" validate:"omitempty,min=0"`
	ClearChangeHours   bool  `json:"clear_change_hours,omitempty"`
	RequireMembership  *bool `json:"require_membership,omitempty"`
}
