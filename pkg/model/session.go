package model

import "time"

// ServiceSession is a recurring bookable offering: a weekly timetable of
// template slots plus a fixed per-occurrence capacity (Slots).
type ServiceSession struct {
	ID             string             `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	OrganizationID string             `json:"organization_id" bson:"organization_id" validate:"required,mongodb"`
	Name           string             `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Description    string             `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=500"`
	ThemeColor     string             `json:"theme_color" bson:"theme_color" validate:"required,hexcolor"`
	Slots          int                `json:"slots" bson:"slots" validate:"required,min=1,max=200"`
	IsActive       bool               `json:"is_active" bson:"is_active"`
	Timetable      []TimeSlotTemplate `json:"timetable" bson:"timetable" validate:"omitempty,dive"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// TimeSlotTemplate is a weekly recurrence rule, not an absolute datetime.
// DayOfWeek follows time.Weekday numbering: 0 = Sunday .. 6 = Saturday.
// Start and End are "HH:mm" strings; End must be strictly after Start.
type TimeSlotTemplate struct {
	ID        string `json:"id,omitempty" bson:"id,omitempty"`
	DayOfWeek int    `json:"day_of_week" bson:"day_of_week" validate:"min=0,max=6"`
	StartTime string `json:"start_time" bson:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" bson:"end_time" validate:"required,hhmm"`
}

type ServiceSessionUpdate struct {
	Name        string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description string `json:"description,omitempty" validate:"omitempty,max=500"`
	ThemeColor  string `json:"theme_color,omitempty" validate:"omitempty,hexcolor"`
	Slots       *int   `json:"slots,omitempty" validate:"omitempty,min=1,max=200"`
	IsActive    *bool  `json:"is_active,omitempty"`
}
