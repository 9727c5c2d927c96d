package sanitizer

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reInnerSpaces = regexp.MustCompile(`\s+`)
	reHexColor    = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

	supportedRegions = []string{
		"IL",
		"US",
	}

	reValidPhone = regexp.MustCompile(`^(?:|\+?[0-9()\-. ]{7,20})$`)
)

func trim(s string) string {
	return strings.TrimSpace(s)
}

func collapseSpaces(s string) string {
	return reInnerSpaces.ReplaceAllString(s, " ")
}

// SanitizeName trims and collapses internal whitespace while keeping the
// original casing. Used for organization, session, space and client names.
func SanitizeName(input string) string {
	p := Pipeline{
		trim,
		collapseSpaces,
	}
	return p.Apply(input)
}

func SanitizeEmail(input string) string {
	p := Pipeline{
		trim,
		strings.ToLower,
	}
	return p.Apply(input)
}

// SanitizePhone normalizes a phone number to E.164. Empty input passes
// through; anything unparseable in a supported region comes back empty.
func SanitizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" || !reValidPhone.MatchString(phone) {
		return ""
	}

	for _, region := range supportedRegions {
		parsedNumber, err := phonenumbers.Parse(phone, region)
		if err == nil {
			return phonenumbers.Format(parsedNumber, phonenumbers.E164)
		}
	}
	return ""
}

// SanitizeNotes trims free-form text and drops control characters that have
// no business in a booking note.
func SanitizeNotes(input string) string {
	input = strings.TrimSpace(input)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, input)
}

// SanitizeHexColor lowercases a #RRGGBB color. Invalid values come back
// empty so validation can reject them with a clear message.
func SanitizeHexColor(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	if !reHexColor.MatchString(input) {
		return ""
	}
	return strings.ToLower(input)
}

func SanitizeSlice(values []string, strategy Strategy) []string {
	seen := make(map[string]struct{})
	out := []string{}

	for _, v := range values {
		s := strategy(v)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}
