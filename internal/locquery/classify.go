// Package locquery classifies free-text location queries before any
// network call is issued.
package locquery

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf16"
)

// Kind is the classification of a valid location query.
type Kind string

const (
	KindInvalid   Kind = ""
	KindCity      Kind = "city"
	KindUSZip     Kind = "us_zip"
	KindIndianPIN Kind = "indian_pin"
)

// User-facing rejection reasons. They are surfaced verbatim.
var (
	ErrEmpty        = errors.New("Please enter a location")
	ErrPostalFormat = errors.New("Please enter a valid US ZIP code (5 digits) or Indian PIN code (6 digits)")
	ErrCityOrPostal = errors.New("Please enter a valid city name (at least 2 characters) or postal code (5 digits for US, 6 digits for India)")
)

const (
	usZipLen     = 5
	indianPINLen = 6
	minCityLen   = 2
)

// Result is the outcome of Classify. Kind is KindInvalid exactly when err is set.
type Result struct {
	Query string
	Kind  Kind
	err   error
}

// Valid reports whether the query was accepted.
func (r Result) Valid() bool { return r.err == nil }

// Err returns one of ErrEmpty, ErrPostalFormat or ErrCityOrPostal, or nil.
func (r Result) Err() error { return r.err }

// Reason is the rejection message, empty for valid results.
func (r Result) Reason() string {
	if r.err == nil {
		return ""
	}
	return r.err.Error()
}

// UpstreamQuery returns the query in the form weather providers expect:
// postal codes carry their country so they are not mistaken for other
// numbering schemes.
func (r Result) UpstreamQuery() string {
	switch r.Kind {
	case KindUSZip:
		return r.Query + ",USA"
	case KindIndianPIN:
		return r.Query + ",India"
	default:
		return r.Query
	}
}

// Country is the country implied by a postal code, empty for cities.
func (r Result) Country() string {
	switch r.Kind {
	case KindUSZip:
		return "USA"
	case KindIndianPIN:
		return "India"
	default:
		return ""
	}
}

// Classify trims input and decides whether it is a city name, a US ZIP
// code, an Indian PIN code, or invalid. It has no side effects.
//
// Trimming and length follow browser string semantics, so the server and
// a web form agree: U+FEFF is whitespace, U+0085 is not, and length counts
// UTF-16 code units ("😀" has length 2).
func Classify(input string) Result {
	q := strings.TrimFunc(input, isSpace)
	if q == "" {
		return Result{err: ErrEmpty}
	}

	// The digit branch comes first: "5" is a bad postal code, not a short city.
	if isDigits(q) {
		switch len(q) {
		case usZipLen:
			return Result{Query: q, Kind: KindUSZip}
		case indianPINLen:
			return Result{Query: q, Kind: KindIndianPIN}
		default:
			return Result{Query: q, err: ErrPostalFormat}
		}
	}

	if utf16Len(q) >= minCityLen {
		return Result{Query: q, Kind: KindCity}
	}
	return Result{Query: q, err: ErrCityOrPostal}
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func isSpace(r rune) bool {
	switch r {
	case '\uFEFF':
		return true
	case '\u0085':
		return false
	}
	return unicode.IsSpace(r)
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
