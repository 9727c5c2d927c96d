package model

import "time"

// Space is the capacity-keyed bookable resource. Unlike a ServiceSession
// it has no weekly template: availability is an operating-hours grid and
// conflicts are overlap-based rather than exact-slot.
type Space struct {
	ID             string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	OrganizationID string    `json:"organization_id" bson:"organization_id" validate:"required,mongodb"`
	Name           string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Description    string    `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=500"`
	Capacity       int       `json:"capacity" bson:"capacity" validate:"required,min=1,max=1000"`
	IsActive       bool      `json:"is_active" bson:"is_active"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

type SpaceUpdate struct {
	Name        string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description string `json:"description,omitempty" validate:"omitempty,max=500"`
	Capacity    *int   `json:"capacity,omitempty" validate:"omitempty,min=1,max=1000"`
	IsActive    *bool  `json:"is_active,omitempty"`
}
