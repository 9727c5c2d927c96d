package sanitizer

import "testing"

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "already clean",
			input: "Morning Yoga",
			want:  "Morning Yoga",
		},
		{
			name:  "leading and trailing spaces",
			input: "  Morning Yoga  ",
			want:  "Morning Yoga",
		},
		{
			name:  "internal runs of whitespace",
			input: "Morning \t  Yoga",
			want:  "Morning Yoga",
		},
		{
			name:  "casing preserved",
			input: "  CrossFit WOD ",
			want:  "CrossFit WOD",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: "   ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeName(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercased",
			input: "Dana@Example.COM",
			want:  "dana@example.com",
		},
		{
			name:  "trimmed",
			input: "  dana@example.com ",
			want:  "dana@example.com",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeEmail(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "valid E.164 format",
			input: "+972541234567",
			want:  "+972541234567",
		},
		{
			name:  "with spaces",
			input: "+972 54 123 4567",
			want:  "+972541234567",
		},
		{
			name:  "with parentheses",
			input: "+1 (212) 555-1234",
			want:  "+12125551234",
		},
		{
			name:  "leading and trailing spaces",
			input: "  +972541234567  ",
			want:  "+972541234567",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: "   ",
			want:  "",
		},
		{
			name:  "garbage",
			input: "not a phone",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizePhone(tt.input)
			if got != tt.want {
				t.Errorf("SanitizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeHexColor(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "uppercase hex lowered",
			input: "#FFAA00",
			want:  "#ffaa00",
		},
		{
			name:  "trimmed",
			input: " #ffaa00 ",
			want:  "#ffaa00",
		},
		{
			name:  "missing hash",
			input: "ffaa00",
			want:  "",
		},
		{
			name:  "short form rejected",
			input: "#fa0",
			want:  "",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeHexColor(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeHexColor(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeNotes(t *testing.T) {
	got := SanitizeNotes("  bring a mat\x00\x07\nsecond line\t ")
	want := "bring a mat\nsecond line"
	if got != want {
		t.Errorf("SanitizeNotes() = %q, want %q", got, want)
	}
}

func TestSanitizeSlice(t *testing.T) {
	got := SanitizeSlice([]string{" A ", "a", "", "B"}, SanitizeEmail)
	want := []string{"a", "b"}
	if len(got) != len(want) {
		t.Fatalf("SanitizeSlice() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SanitizeSlice()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
