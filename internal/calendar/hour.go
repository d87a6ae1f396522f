package calendar

import (
	"regexp"
	"strconv"
)

// Hour is an hour of the day stored in 24-hour form (0–23).
type Hour struct {
	BoundedInt
}

func NewHour(v int) Hour {
	return Hour{NewBoundedInt(v)}
}

func HourIsValid(h int) bool {
	return h >= 0 && h < 24
}

func HourIsAM(h int) bool {
	return h >= 0 && h < 12
}

func HourIsPM(h int) bool {
	return h >= 12 && h < 24
}

// HourConvertToAM maps 12–23 onto 0–11 and leaves everything else alone.
func HourConvertToAM(h int) int {
	if HourIsPM(h) {
		return h - 12
	}
	return h
}

// HourConvertToPM maps 0–11 onto 12–23 and leaves everything else alone.
func HourConvertToPM(h int) int {
	if HourIsAM(h) {
		return h + 12
	}
	return h
}

func (h Hour) IsValid() bool {
	return h.Is(HourIsValid)
}

func (h Hour) IsAM() bool {
	return h.Is(HourIsAM)
}

func (h Hour) IsPM() bool {
	return h.Is(HourIsPM)
}

func (h Hour) ConvertToAM() Hour {
	v, ok := h.Value()
	if !ok {
		return h
	}
	return NewHour(HourConvertToAM(v))
}

func (h Hour) ConvertToPM() Hour {
	v, ok := h.Value()
	if !ok {
		return h
	}
	return NewHour(HourConvertToPM(v))
}

// String renders the 12-hour clock value: 0 is "12", 13–23 are 1–11.
// Invalid or absent hours render as "".
func (h Hour) String() string {
	v, ok := h.Value()
	switch {
	case !ok || !HourIsValid(v):
		return ""
	case v == 0:
		return "12"
	case v > 12:
		return strconv.Itoa(v - 12)
	default:
		return strconv.Itoa(v)
	}
}

var (
	hourTwoDigits = regexp.MustCompile(`^(1[0-2]|[1-9])$`)
	hourOneDigit  = regexp.MustCompile(`^([1-9])$`)
)

// HourFromString parses 12-hour text typed into a two-character field. The
// last two characters are tried first (1–12), then the last character
// (1–9), then the exact text "0".
func HourFromString(text string) Hour {
	var match string
	switch {
	case hourTwoDigits.MatchString(lastRunes(text, 2)):
		match = lastRunes(text, 2)
	case hourOneDigit.MatchString(lastRunes(text, 1)):
		match = lastRunes(text, 1)
	case text == "0":
		match = text
	default:
		return Hour{}
	}
	return Hour{ParseBoundedInt(match)}
}

func lastRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
