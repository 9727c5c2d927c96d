package interval

import (
	"testing"
	"time"
)

func at(hour, min int) time.Time {
	return time.Date(2026, time.March, 4, hour, min, 0, 0, time.UTC)
}

func iv(startHour, startMin, endHour, endMin int) Interval {
	return Interval{Start: at(startHour, startMin), End: at(endHour, endMin)}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a    Interval
		b    Interval
		want bool
	}{
		{
			name: "touching endpoints do not overlap",
			a:    iv(10, 0, 11, 0),
			b:    iv(11, 0, 12, 0),
			want: false,
		},
		{
			name: "partial overlap from the right",
			a:    iv(10, 0, 11, 0),
			b:    iv(10, 30, 11, 30),
			want: true,
		},
		{
			name: "partial overlap from the left",
			a:    iv(10, 30, 11, 30),
			b:    iv(10, 0, 11, 0),
			want: true,
		},
		{
			name: "total containment",
			a:    iv(9, 0, 12, 0),
			b:    iv(10, 0, 11, 0),
			want: true,
		},
		{
			name: "exact equality",
			a:    iv(10, 0, 11, 0),
			b:    iv(10, 0, 11, 0),
			want: true,
		},
		{
			name: "disjoint",
			a:    iv(8, 0, 9, 0),
			b:    iv(13, 0, 14, 0),
			want: false,
		},
		{
			name: "zero-length interval overlaps nothing",
			a:    iv(10, 30, 10, 30),
			b:    iv(10, 0, 11, 0),
			want: false,
		},
		{
			name: "zero-length against itself",
			a:    iv(10, 0, 10, 0),
			b:    iv(10, 0, 10, 0),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b); got != tt.want {
				t.Errorf("Overlaps(a, b) = %v, want %v", got, tt.want)
			}
			if got := Overlaps(tt.b, tt.a); got != tt.want {
				t.Errorf("Overlaps(b, a) = %v, want %v (symmetry)", got, tt.want)
			}
		})
	}
}

func TestOverlaps_SelfWithPositiveDuration(t *testing.T) {
	a := iv(10, 0, 11, 0)
	if !Overlaps(a, a) {
		t.Errorf("an interval with positive duration must overlap itself")
	}
}

func TestHasConflict(t *testing.T) {
	existing := []Interval{
		iv(9, 0, 10, 0),
		iv(12, 0, 13, 0),
	}

	tests := []struct {
		name      string
		candidate Interval
		want      bool
	}{
		{"between bookings", iv(10, 0, 12, 0), false},
		{"overlapping first", iv(9, 30, 10, 30), true},
		{"overlapping second", iv(12, 30, 14, 0), true},
		{"spanning both", iv(8, 0, 14, 0), true},
		{"empty existing list", iv(9, 30, 10, 30), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasConflict(tt.candidate, existing); got != tt.want {
				t.Errorf("HasConflict() = %v, want %v", got, tt.want)
			}
		})
	}

	if HasConflict(iv(9, 0, 10, 0), nil) {
		t.Errorf("no existing bookings should never conflict")
	}
}

func TestFilterAvailable(t *testing.T) {
	slots := []Interval{
		iv(9, 0, 9, 30),
		iv(9, 30, 10, 0),
		iv(10, 0, 10, 30),
		iv(10, 30, 11, 0),
	}
	booked := []Interval{iv(9, 30, 10, 30)}

	got := FilterAvailable(slots, booked)

	want := []Interval{iv(9, 0, 9, 30), iv(10, 30, 11, 0)}
	if len(got) != len(want) {
		t.Fatalf("FilterAvailable() returned %d slots, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Start.Equal(want[i].Start) || !got[i].End.Equal(want[i].End) {
			t.Errorf("slot %d = %v-%v, want %v-%v", i, got[i].Start, got[i].End, want[i].Start, want[i].End)
		}
	}
}

func TestFilterAvailable_NoBookings(t *testing.T) {
	slots := []Interval{iv(9, 0, 9, 30), iv(9, 30, 10, 0)}

	got := FilterAvailable(slots, nil)
	if len(got) != len(slots) {
		t.Errorf("with no bookings every slot is available, got %d of %d", len(got), len(slots))
	}
}
