package calendar

import "regexp"

// DayOfMonth is a calendar day within a month (1–31).
type DayOfMonth struct {
	BoundedInt
}

func NewDayOfMonth(v int) DayOfMonth {
	return DayOfMonth{NewBoundedInt(v)}
}

func DayOfMonthIsValid(d int) bool {
	return d >= 1 && d <= 31
}

func (d DayOfMonth) IsValid() bool {
	return d.Is(DayOfMonthIsValid)
}

// OrdinalSuffix returns the English suffix for the day: "st", "nd", "rd"
// or "th". 11, 12 and 13 take "th". Absent days return "".
func (d DayOfMonth) OrdinalSuffix() string {
	v, ok := d.Value()
	if !ok {
		return ""
	}
	return ordinalSuffix(v)
}

// WithOrdinal renders the day followed by its suffix, e.g. "21st".
func (d DayOfMonth) WithOrdinal() string {
	return d.String() + d.OrdinalSuffix()
}

func ordinalSuffix(n int) string {
	if n < 0 {
		n = -n
	}
	switch n % 100 {
	case 11, 12, 13:
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

var (
	dayOfMonthTwoDigits = regexp.MustCompile(`^(3[01]|[12][0-9]|0[1-9])$`)
	dayOfMonthOneDigit  = regexp.MustCompile(`^[1-9]$`)
)

// DayOfMonthFromString keeps only the trailing one or two digits that form
// a day from 1 to 31.
func DayOfMonthFromString(text string) DayOfMonth {
	if two := lastRunes(text, 2); dayOfMonthTwoDigits.MatchString(two) {
		return DayOfMonth{ParseBoundedInt(two)}
	}
	if one := lastRunes(text, 1); dayOfMonthOneDigit.MatchString(one) {
		return DayOfMonth{ParseBoundedInt(one)}
	}
	return DayOfMonth{}
}
