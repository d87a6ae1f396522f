package calendar

import (
	"regexp"
	"time"
)

// Month is a month of the year (1–12).
type Month struct {
	BoundedInt
}

var (
	monthNames      = [12]string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"}
	monthShortNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	// February allows 29 days in every year: the limit is an input bound,
	// not a date check.
	monthMaxDays = [12]int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
)

var (
	January   = NewMonth(1)
	February  = NewMonth(2)
	March     = NewMonth(3)
	April     = NewMonth(4)
	May       = NewMonth(5)
	June      = NewMonth(6)
	July      = NewMonth(7)
	August    = NewMonth(8)
	September = NewMonth(9)
	October   = NewMonth(10)
	November  = NewMonth(11)
	December  = NewMonth(12)
)

func NewMonth(v int) Month {
	return Month{NewBoundedInt(v)}
}

// Year returns January through December in order.
func Year() []Month {
	return []Month{January, February, March, April, May, June, July, August, September, October, November, December}
}

func MonthIsValid(m int) bool {
	return m >= 1 && m <= 12
}

func (m Month) IsValid() bool {
	return m.Is(MonthIsValid)
}

func (m Month) Name() string {
	if !m.IsValid() {
		return ""
	}
	return monthNames[m.value-1]
}

func (m Month) ShortName() string {
	if !m.IsValid() {
		return ""
	}
	return monthShortNames[m.value-1]
}

// TimeMonth converts to time.Month. The second result is false for invalid
// months.
func (m Month) TimeMonth() (time.Month, bool) {
	if !m.IsValid() {
		return time.January, false
	}
	return time.Month(m.value), true
}

// MaxDays is the largest day number the month accepts.
func (m Month) MaxDays() (int, bool) {
	if !m.IsValid() {
		return 0, false
	}
	return monthMaxDays[m.value-1], true
}

// LimitDayToMax caps day at MaxDays. Days are returned unchanged when the
// month is invalid or the day is absent.
func (m Month) LimitDayToMax(day DayOfMonth) DayOfMonth {
	limit, ok := m.MaxDays()
	v, present := day.Value()
	if !ok || !present || v <= limit {
		return day
	}
	return NewDayOfMonth(limit)
}

var monthPattern = regexp.MustCompile(`^(1[0-2]|[1-9])$`)

// MonthFromString accepts 1–12 and falls back to January for anything else.
func MonthFromString(text string) Month {
	match := ""
	if monthPattern.MatchString(text) {
		match = text
	}
	return Month{ParseBoundedIntWithDefault(match, 1)}
}
