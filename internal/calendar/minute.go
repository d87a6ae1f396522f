package calendar

import (
	"fmt"
	"regexp"
)

// Minute is a minute of the hour (0–59).
type Minute struct {
	BoundedInt
}

func NewMinute(v int) Minute {
	return Minute{NewBoundedInt(v)}
}

func MinuteIsValid(m int) bool {
	return m >= 0 && m < 60
}

func (m Minute) IsValid() bool {
	return m.Is(MinuteIsValid)
}

// String zero-pads valid minutes to two digits.
func (m Minute) String() string {
	v, ok := m.Value()
	if !ok {
		return ""
	}
	if MinuteIsValid(v) {
		return fmt.Sprintf("%02d", v)
	}
	return m.BoundedInt.String()
}

var (
	minuteTwoDigits = regexp.MustCompile(`^[0-5][0-9]$`)
	minuteOneDigit  = regexp.MustCompile(`^[0-9]$`)
)

// MinuteFromString reads the last two typed characters as 00–59, falling
// back to the last character alone. Typing over a full field such as "30"
// with "7" gives "307", which reads as 7.
func MinuteFromString(text string) Minute {
	if two := lastRunes(text, 2); minuteTwoDigits.MatchString(two) {
		return Minute{ParseBoundedInt(two)}
	}
	if one := lastRunes(text, 1); minuteOneDigit.MatchString(one) {
		return Minute{ParseBoundedInt(one)}
	}
	return Minute{}
}
