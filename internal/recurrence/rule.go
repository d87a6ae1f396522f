package recurrence

import (
	"errors"
	"fmt"

	"skillsched/internal/calendar"
)

// Kind is the wire discriminant for a rule, sent as "typeName".
type Kind string

const (
	KindMinutely              Kind = "minutely"
	KindHourly                Kind = "hourly"
	KindDaily                 Kind = "daily"
	KindWeekly                Kind = "weekly"
	KindMonthlyByDayOfMonth   Kind = "monthly_by_day_of_month"
	KindMonthlyByNthDayOfWeek Kind = "monthly_by_nth_day_of_week"
	KindYearly                Kind = "yearly"
)

// ErrUnknownKind is returned when decoding a typeName outside the seven kinds.
var ErrUnknownKind = errors.New("recurrence: unknown typeName")

// Kinds lists every kind in editor order.
func Kinds() []Kind {
	return []Kind{
		KindMinutely,
		KindHourly,
		KindDaily,
		KindWeekly,
		KindMonthlyByDayOfMonth,
		KindMonthlyByNthDayOfWeek,
		KindYearly,
	}
}

// ParseKind maps a typeName onto a Kind. The empty string is minutely.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return KindMinutely, nil
	}
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// TimeOfDay is a wall-clock time in the recurrence's time zone.
type TimeOfDay struct {
	Hour   calendar.Hour   `json:"hour"`
	Minute calendar.Minute `json:"minute"`
}

// DefaultTimeOfDay is 9:00 AM.
func DefaultTimeOfDay() TimeOfDay {
	return TimeOfDay{Hour: calendar.NewHour(9), Minute: calendar.NewMinute(0)}
}

// NewTimeOfDay builds a time of day from 24-hour values.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: calendar.NewHour(hour), Minute: calendar.NewMinute(minute)}
}

func (t TimeOfDay) IsValid() bool {
	return t.Hour.IsValid() && t.Minute.IsValid()
}

// String renders "9:05 AM". Invalid times render as "".
func (t TimeOfDay) String() string {
	if !t.IsValid() {
		return ""
	}
	suffix := "AM"
	if t.Hour.IsPM() {
		suffix = "PM"
	}
	return t.Hour.String() + ":" + t.Minute.String() + " " + suffix
}

// Rule is the kind-specific part of a recurrence. The concrete types are
// Minutely, Hourly, Daily, Weekly, MonthlyByDayOfMonth,
// MonthlyByNthDayOfWeek and Yearly; no other type can satisfy it.
type Rule interface {
	Kind() Kind
	clone() Rule
}

// timed is implemented by every rule that fires at a time of day.
type timed interface {
	Rule
	timeOfDay() *TimeOfDay
	withTimeOfDay(t *TimeOfDay) Rule
}

type Minutely struct{}

type Hourly struct {
	MinuteOfHour calendar.Minute
}

type Daily struct {
	TimeOfDay *TimeOfDay
}

type Weekly struct {
	TimeOfDay  *TimeOfDay
	DaysOfWeek []calendar.DayOfWeek
}

type MonthlyByDayOfMonth struct {
	TimeOfDay  *TimeOfDay
	DayOfMonth calendar.DayOfMonth
}

// MonthlyByNthDayOfWeek fires on the Nth (1–5) given weekday of the month,
// e.g. the third Tuesday.
type MonthlyByNthDayOfWeek struct {
	TimeOfDay    *TimeOfDay
	NthDayOfWeek calendar.BoundedInt
	DayOfWeek    calendar.DayOfWeek
}

type Yearly struct {
	TimeOfDay  *TimeOfDay
	DayOfMonth calendar.DayOfMonth
	Month      calendar.Month
}

func (Minutely) Kind() Kind              { return KindMinutely }
func (Hourly) Kind() Kind                { return KindHourly }
func (Daily) Kind() Kind                 { return KindDaily }
func (Weekly) Kind() Kind                { return KindWeekly }
func (MonthlyByDayOfMonth) Kind() Kind   { return KindMonthlyByDayOfMonth }
func (MonthlyByNthDayOfWeek) Kind() Kind { return KindMonthlyByNthDayOfWeek }
func (Yearly) Kind() Kind                { return KindYearly }

func (r Minutely) clone() Rule { return r }
func (r Hourly) clone() Rule   { return r }

func (r Daily) clone() Rule {
	r.TimeOfDay = copyTimeOfDay(r.TimeOfDay)
	return r
}

func (r Weekly) clone() Rule {
	r.TimeOfDay = copyTimeOfDay(r.TimeOfDay)
	r.DaysOfWeek = append([]calendar.DayOfWeek{}, r.DaysOfWeek...)
	return r
}

func (r MonthlyByDayOfMonth) clone() Rule {
	r.TimeOfDay = copyTimeOfDay(r.TimeOfDay)
	return r
}

func (r MonthlyByNthDayOfWeek) clone() Rule {
	r.TimeOfDay = copyTimeOfDay(r.TimeOfDay)
	return r
}

func (r Yearly) clone() Rule {
	r.TimeOfDay = copyTimeOfDay(r.TimeOfDay)
	return r
}

func (r Daily) timeOfDay() *TimeOfDay                 { return r.TimeOfDay }
func (r Weekly) timeOfDay() *TimeOfDay                { return r.TimeOfDay }
func (r MonthlyByDayOfMonth) timeOfDay() *TimeOfDay   { return r.TimeOfDay }
func (r MonthlyByNthDayOfWeek) timeOfDay() *TimeOfDay { return r.TimeOfDay }
func (r Yearly) timeOfDay() *TimeOfDay                { return r.TimeOfDay }

func (r Daily) withTimeOfDay(t *TimeOfDay) Rule {
	r.TimeOfDay = t
	return r
}

func (r Weekly) withTimeOfDay(t *TimeOfDay) Rule {
	r.TimeOfDay = t
	return r
}

func (r MonthlyByDayOfMonth) withTimeOfDay(t *TimeOfDay) Rule {
	r.TimeOfDay = t
	return r
}

func (r MonthlyByNthDayOfWeek) withTimeOfDay(t *TimeOfDay) Rule {
	r.TimeOfDay = t
	return r
}

func (r Yearly) withTimeOfDay(t *TimeOfDay) Rule {
	r.TimeOfDay = t
	return r
}

func copyTimeOfDay(t *TimeOfDay) *TimeOfDay {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
