package model

import "time"

// Client is a tenant-scoped person record, unique per (organization,
// email). SessionAllowance is the organization-wide ceiling on active
// bookings; nil means unlimited. Policy code never reads the pointer
// directly, it goes through policy.AllowanceFromPtr.
type Client struct {
	ID               string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	OrganizationID   string    `json:"organization_id" bson:"organization_id" validate:"required,mongodb"`
	UserID           string    `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Email            string    `json:"email" bson:"email" validate:"required,email"`
	Name             string    `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Phone            string    `json:"phone,omitempty" bson:"phone,omitempty" validate:"omitempty,e164"`
	Notes            string    `json:"notes,omitempty" bson:"notes,omitempty" validate:"omitempty,max=1000"`
	SessionAllowance *int      `json:"session_allowance" bson:"session_allowance" validate:"omitempty,min=0"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt        time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

type ClientUpdate struct {
	Email            string `json:"email,omitempty" validate:"omitempty,email"`
	Name             string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Phone            string `json:"phone,omitempty" validate:"omitempty,e164"`
	Notes            string `json:"notes,omitempty" validate:"omitempty,max=1000"`
	SessionAllowance *int   `json:"session_allowance,omitempty" validate:"omitempty,min=0"`
}

// AllowanceRenewal adds sessions to a limited allowance. An unlimited
// allowance stays unlimited.
type AllowanceRenewal struct {
	SessionsToAdd int `json:"sessions_to_add" validate:"required,min=1,max=1000"`
}
