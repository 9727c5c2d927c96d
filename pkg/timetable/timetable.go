// Package timetable projects recurrence rules onto calendar dates.
//
// Two independent projections live here: the operating-hours grid used
// by space availability, and the weekly template projection used by
// session availability. Both are pure functions of their inputs; nothing
// is cached or persisted.
package timetable

import (
	"fmt"
	"sort"
	"time"

	"bookwell/pkg/interval"
	"bookwell/pkg/model"
)

// ParseHHMM parses a "HH:mm" clock string into its hour and minute
// components. Shared by the projection below and the session validators.
func ParseHHMM(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid HH:mm time %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// GenerateSlots produces the operating-hours grid: for every calendar
// day in [startDate, endDate] inclusive, consecutive slots of the given
// duration between dayStartHour:00 and dayEndHour:00. A trailing slot
// that would extend past dayEndHour:00 is dropped.
func GenerateSlots(startDate, endDate time.Time, duration time.Duration, dayStartHour, dayEndHour int) []interval.Interval {
	var slots []interval.Interval
	if duration <= 0 || dayEndHour <= dayStartHour {
		return slots
	}

	loc := startDate.Location()
	day := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, loc)
	last := time.Date(endDate.Year(), endDate.Month(), endDate.Day(), 0, 0, 0, 0, loc)

	for !day.After(last) {
		cursor := day.Add(time.Duration(dayStartHour) * time.Hour)
		dayEnd := day.Add(time.Duration(dayEndHour) * time.Hour)

		for {
			slotEnd := cursor.Add(duration)
			if slotEnd.After(dayEnd) {
				break
			}
			slots = append(slots, interval.Interval{Start: cursor, End: slotEnd})
			cursor = slotEnd
		}

		day = day.AddDate(0, 0, 1)
	}

	return slots
}

// ProjectDay maps a session's weekly template onto one concrete date:
// templates whose day-of-week matches the date become absolute
// intervals, sorted ascending by start time. Templates that fail to
// parse or have end <= start are invalid upstream and are skipped here.
func ProjectDay(templates []model.TimeSlotTemplate, date time.Time) []interval.Interval {
	weekday := int(date.Weekday())
	loc := date.Location()

	var occurrences []interval.Interval
	for _, tpl := range templates {
		if tpl.DayOfWeek != weekday {
			continue
		}

		startHour, startMin, err := ParseHHMM(tpl.StartTime)
		if err != nil {
			continue
		}
		endHour, endMin, err := ParseHHMM(tpl.EndTime)
		if err != nil {
			continue
		}

		occ := interval.Interval{
			Start: time.Date(date.Year(), date.Month(), date.Day(), startHour, startMin, 0, 0, loc),
			End:   time.Date(date.Year(), date.Month(), date.Day(), endHour, endMin, 0, 0, loc),
		}
		if !occ.End.After(occ.Start) {
			continue
		}
		occurrences = append(occurrences, occ)
	}

	sort.Slice(occurrences, func(i, j int) bool {
		return occurrences[i].Start.Before(occurrences[j].Start)
	})
	return occurrences
}

// SlotKey renders an occurrence as its time-of-day grouping key,
// "HH:mm-HH:mm". Bookings pre-filtered to one date group under this key;
// it must agree with the exact (start, end) match used at creation time.
func SlotKey(occ interval.Interval) string {
	return occ.Start.Format("15:04") + "-" + occ.End.Format("15:04")
}

// DayBounds returns the inclusive start and exclusive end of the
// calendar day containing t, in t's location.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
