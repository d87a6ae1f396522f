// Package recurrence models when a scheduled action repeats.
//
// A Recurrence is an immutable value: every edit (Clone, the Become*
// transitions, the Set* editing helpers) returns a new value and leaves the
// receiver untouched. Validity is reported by predicates rather than
// errors; the only failing boundaries are JSON decoding and the calendar
// bridges to RRULE and cron.
package recurrence

import (
	"slices"

	"skillsched/internal/calendar"
)

// Recurrence is a repeat rule plus the fields shared by every kind.
type Recurrence struct {
	ID            string
	DisplayString string
	// Frequency is the interval: every N minutes, hours, days and so on.
	Frequency       int
	TimesHasRun     int
	TotalTimesToRun calendar.BoundedInt
	TimeZone        string
	TimeZoneName    string
	Rule            Rule
}

// New returns a minutely recurrence firing every minute.
func New() Recurrence {
	return Recurrence{Frequency: 1, Rule: Minutely{}}
}

// Patch lists the fields Clone overrides. Nil fields keep the current value.
type Patch struct {
	ID              *string
	DisplayString   *string
	Frequency       *int
	TimesHasRun     *int
	TotalTimesToRun *calendar.BoundedInt
	TimeZone        *string
	TimeZoneName    *string
	Rule            Rule
}

// Ref returns a pointer to v, for building patches.
func Ref[T any](v T) *T {
	return &v
}

// Clone returns a copy of r with the non-nil patch fields applied.
func (r Recurrence) Clone(p Patch) Recurrence {
	out := r
	if p.ID != nil {
		out.ID = *p.ID
	}
	if p.DisplayString != nil {
		out.DisplayString = *p.DisplayString
	}
	if p.Frequency != nil {
		out.Frequency = *p.Frequency
	}
	if p.TimesHasRun != nil {
		out.TimesHasRun = *p.TimesHasRun
	}
	if p.TotalTimesToRun != nil {
		out.TotalTimesToRun = *p.TotalTimesToRun
	}
	if p.TimeZone != nil {
		out.TimeZone = *p.TimeZone
	}
	if p.TimeZoneName != nil {
		out.TimeZoneName = *p.TimeZoneName
	}
	if p.Rule != nil {
		out.Rule = p.Rule
	}
	out.Rule = out.rule().clone()
	return out
}

func (r Recurrence) rule() Rule {
	if r.Rule == nil {
		return Minutely{}
	}
	return r.Rule
}

// TypeName is the wire discriminant of the current rule.
func (r Recurrence) TypeName() Kind {
	return r.rule().Kind()
}

// TimeOfDay returns a copy of the time of day, or nil for minutely and
// hourly rules and for rules without one set.
func (r Recurrence) TimeOfDay() *TimeOfDay {
	if t, ok := r.rule().(timed); ok {
		return copyTimeOfDay(t.timeOfDay())
	}
	return nil
}

func (r Recurrence) MinuteOfHour() calendar.Minute {
	if h, ok := r.rule().(Hourly); ok {
		return h.MinuteOfHour
	}
	return calendar.Minute{}
}

func (r Recurrence) DaysOfWeek() []calendar.DayOfWeek {
	if w, ok := r.rule().(Weekly); ok {
		return slices.Clone(w.DaysOfWeek)
	}
	return nil
}

func (r Recurrence) DayOfWeek() calendar.DayOfWeek {
	if m, ok := r.rule().(MonthlyByNthDayOfWeek); ok {
		return m.DayOfWeek
	}
	return calendar.DayOfWeek{}
}

func (r Recurrence) NthDayOfWeek() calendar.BoundedInt {
	if m, ok := r.rule().(MonthlyByNthDayOfWeek); ok {
		return m.NthDayOfWeek
	}
	return calendar.NoInt()
}

func (r Recurrence) DayOfMonth() calendar.DayOfMonth {
	switch rule := r.rule().(type) {
	case MonthlyByDayOfMonth:
		return rule.DayOfMonth
	case Yearly:
		return rule.DayOfMonth
	}
	return calendar.DayOfMonth{}
}

func (r Recurrence) Month() calendar.Month {
	if y, ok := r.rule().(Yearly); ok {
		return y.Month
	}
	return calendar.Month{}
}

// ForEqualityComparison clears the server-derived display fields.
func (r Recurrence) ForEqualityComparison() Recurrence {
	out := r.Clone(Patch{})
	out.DisplayString = ""
	out.TimeZoneName = ""
	return out
}

// Equal compares two recurrences ignoring DisplayString and TimeZoneName.
func (r Recurrence) Equal(other Recurrence) bool {
	a, b := r.ForEqualityComparison(), other.ForEqualityComparison()
	if a.ID != b.ID ||
		a.Frequency != b.Frequency ||
		a.TimesHasRun != b.TimesHasRun ||
		!a.TotalTimesToRun.Equal(b.TotalTimesToRun) ||
		a.TimeZone != b.TimeZone {
		return false
	}
	return rulesEqual(a.rule(), b.rule())
}

func rulesEqual(a, b Rule) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Minutely:
		return true
	case Hourly:
		return x.MinuteOfHour.Equal(b.(Hourly).MinuteOfHour.BoundedInt)
	case Daily:
		return timesOfDayEqual(x.TimeOfDay, b.(Daily).TimeOfDay)
	case Weekly:
		y := b.(Weekly)
		return timesOfDayEqual(x.TimeOfDay, y.TimeOfDay) &&
			slices.EqualFunc(x.DaysOfWeek, y.DaysOfWeek, func(d, e calendar.DayOfWeek) bool {
				return d.Equal(e.BoundedInt)
			})
	case MonthlyByDayOfMonth:
		y := b.(MonthlyByDayOfMonth)
		return timesOfDayEqual(x.TimeOfDay, y.TimeOfDay) && x.DayOfMonth.Equal(y.DayOfMonth.BoundedInt)
	case MonthlyByNthDayOfWeek:
		y := b.(MonthlyByNthDayOfWeek)
		return timesOfDayEqual(x.TimeOfDay, y.TimeOfDay) &&
			x.NthDayOfWeek.Equal(y.NthDayOfWeek) &&
			x.DayOfWeek.Equal(y.DayOfWeek.BoundedInt)
	case Yearly:
		y := b.(Yearly)
		return timesOfDayEqual(x.TimeOfDay, y.TimeOfDay) &&
			x.DayOfMonth.Equal(y.DayOfMonth.BoundedInt) &&
			x.Month.Equal(y.Month.BoundedInt)
	}
	return false
}

func timesOfDayEqual(a, b *TimeOfDay) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Hour.Equal(b.Hour.BoundedInt) && a.Minute.Equal(b.Minute.BoundedInt)
}
