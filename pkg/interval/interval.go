// Package interval provides the overlap tests the booking conflict
// engine is built on. Overlap semantics are exclusive: intervals that
// merely touch at an endpoint do not overlap. All functions are pure.
package interval

import "time"

type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether a and b share any instant. Exclusive
// semantics: a.End == b.Start is not an overlap, and a zero-length or
// inverted interval overlaps nothing.
func Overlaps(a, b Interval) bool {
	if !a.Start.Before(a.End) || !b.Start.Before(b.End) {
		return false
	}
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// HasConflict reports whether candidate overlaps any interval in
// existing. The caller is expected to have filtered existing down to
// active bookings already.
func HasConflict(candidate Interval, existing []Interval) bool {
	for _, e := range existing {
		if Overlaps(candidate, e) {
			return true
		}
	}
	return false
}

// FilterAvailable returns the slots that conflict with none of the
// booked intervals, preserving order.
func FilterAvailable(slots []Interval, booked []Interval) []Interval {
	available := make([]Interval, 0, len(slots))
	for _, s := range slots {
		if !HasConflict(s, booked) {
			available = append(available, s)
		}
	}
	return available
}
