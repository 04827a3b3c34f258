package identity

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// MovieIdentity is the title/year pair used for catalog matching.
type MovieIdentity struct {
	Title string
	Year  string
}

// New builds an identity from raw record fields.
func New(title, year string) MovieIdentity {
	return MovieIdentity{
		Title: strings.TrimSpace(title),
		Year:  strings.TrimSpace(year),
	}
}

// YearValue parses the release year. ok is false when the year is absent or
// not a number.
func (m MovieIdentity) YearValue() (year int, ok bool) {
	return ParseYear(m.Year)
}

// Key returns the cache key for this identity.
func (m MovieIdentity) Key() string {
	return Key(m.Title, m.Year)
}

// String renders "Title (Year)" for logs.
func (m MovieIdentity) String() string {
	if m.Year == "" {
		return m.Title
	}
	return m.Title + " (" + m.Year + ")"
}

var lower = cases.Lower(language.Und)

// Normalize lower-cases value and drops everything that is not a letter or a
// digit. Accents are removed by canonical decomposition first.
func Normalize(value string) string {
	if value == "" {
		return ""
	}
	decomposed := norm.NFKD.String(lower.String(norm.NFKD.String(value)))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Key joins the normalized title with the year, when one is known, so remakes
// sharing a title get distinct cache entries.
func Key(title, year string) string {
	normalized := Normalize(title)
	if y, ok := ParseYear(year); ok {
		return normalized + "|" + strconv.Itoa(y)
	}
	return normalized
}

// ParseYear parses a four-digit-ish release year, tolerating surrounding
// whitespace.
func ParseYear(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	year, err := strconv.Atoi(value)
	if err != nil || year <= 0 {
		return 0, false
	}
	return year, true
}
