package model

import "time"

// BookingLock is an advisory lock keyed on the slot identity, taken for
// the duration of the capacity check-and-insert. The collection carries
// a TTL index on ExpiresAt so crashed holders cannot wedge a slot.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
