package calendar

import (
	"regexp"
	"time"
)

// DayOfWeek is an ISO weekday: Monday is 1, Sunday is 7.
type DayOfWeek struct {
	BoundedInt
}

var (
	dayNames      = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	dayShortNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
)

var (
	Monday    = NewDayOfWeek(1)
	Tuesday   = NewDayOfWeek(2)
	Wednesday = NewDayOfWeek(3)
	Thursday  = NewDayOfWeek(4)
	Friday    = NewDayOfWeek(5)
	Saturday  = NewDayOfWeek(6)
	Sunday    = NewDayOfWeek(7)
)

func NewDayOfWeek(v int) DayOfWeek {
	return DayOfWeek{NewBoundedInt(v)}
}

// Week returns Monday through Sunday in order.
func Week() []DayOfWeek {
	return []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

func DayOfWeekIsValid(d int) bool {
	return d >= 1 && d <= 7
}

func (d DayOfWeek) IsValid() bool {
	return d.Is(DayOfWeekIsValid)
}

func (d DayOfWeek) Name() string {
	if !d.IsValid() {
		return ""
	}
	return dayNames[d.value-1]
}

func (d DayOfWeek) ShortName() string {
	if !d.IsValid() {
		return ""
	}
	return dayShortNames[d.value-1]
}

// Weekday converts to time.Weekday. The second result is false for
// invalid days.
func (d DayOfWeek) Weekday() (time.Weekday, bool) {
	if !d.IsValid() {
		return time.Sunday, false
	}
	return time.Weekday(d.value % 7), true
}

// DayOfWeekFromWeekday converts from time.Weekday.
func DayOfWeekFromWeekday(w time.Weekday) DayOfWeek {
	if w == time.Sunday {
		return Sunday
	}
	return NewDayOfWeek(int(w))
}

var dayOfWeekPattern = regexp.MustCompile(`^[1-7]$`)

// DayOfWeekFromString accepts a single digit 1–7.
func DayOfWeekFromString(text string) DayOfWeek {
	if !dayOfWeekPattern.MatchString(text) {
		return DayOfWeek{}
	}
	return DayOfWeek{ParseBoundedInt(text)}
}

// DaysOfWeekFromInts wraps raw integers, keeping invalid entries.
func DaysOfWeekFromInts(days []int) []DayOfWeek {
	out := make([]DayOfWeek, 0, len(days))
	for _, d := range days {
		out = append(out, NewDayOfWeek(d))
	}
	return out
}
