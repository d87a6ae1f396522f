package recurrence

import (
	"slices"

	"skillsched/internal/calendar"
)

// Editing helpers that can be inapplicable also report whether anything
// changed. An edit for another kind, or one missing a field it depends on,
// leaves the recurrence as it is.

// SetFrequencyFromString parses typed text and clamps it to [lo, hi].
// Text without a number leaves the frequency at 0, which is invalid.
func (r Recurrence) SetFrequencyFromString(text string, lo, hi int) Recurrence {
	freq := calendar.ParseBoundedInt(text).WithinRange(lo, hi).ValueOr(0)
	return r.Clone(Patch{Frequency: &freq})
}

func (r Recurrence) setTimeOfDay(t TimeOfDay) (Recurrence, bool) {
	rule, ok := r.rule().(timed)
	if !ok {
		return r, false
	}
	out := r.Clone(Patch{})
	out.Rule = rule.withTimeOfDay(&t)
	return out, true
}

func (r Recurrence) hour() calendar.Hour {
	if t := r.TimeOfDay(); t != nil {
		return t.Hour
	}
	return calendar.Hour{}
}

func (r Recurrence) minute() calendar.Minute {
	if t := r.TimeOfDay(); t != nil {
		return t.Minute
	}
	return calendar.Minute{}
}

// SetHour replaces the hour. It needs an existing minute.
func (r Recurrence) SetHour(h calendar.Hour) (Recurrence, bool) {
	m := r.minute()
	if !h.IsPresent() || !m.IsPresent() {
		return r, false
	}
	return r.setTimeOfDay(TimeOfDay{Hour: h, Minute: m})
}

// SetMinute replaces the minute. It needs an existing hour.
func (r Recurrence) SetMinute(m calendar.Minute) (Recurrence, bool) {
	h := r.hour()
	if !h.IsPresent() || !m.IsPresent() {
		return r, false
	}
	return r.setTimeOfDay(TimeOfDay{Hour: h, Minute: m})
}

// SetHourFromText reads a 12-hour value typed into the hour field and keeps
// the current half of the day.
func (r Recurrence) SetHourFromText(text string) (Recurrence, bool) {
	h := calendar.HourFromString(text)
	if !h.IsPresent() {
		return r, false
	}
	switch {
	case r.IsAM():
		h = h.ConvertToAM()
	case r.IsPM():
		h = h.ConvertToPM()
	}
	return r.SetHour(h)
}

// SetMinuteFromText reads a minute typed into the minute field.
func (r Recurrence) SetMinuteFromText(text string) (Recurrence, bool) {
	return r.SetMinute(calendar.MinuteFromString(text))
}

func (r Recurrence) IsAM() bool {
	return r.hour().IsAM()
}

func (r Recurrence) IsPM() bool {
	return r.hour().IsPM()
}

func (r Recurrence) SetAM() (Recurrence, bool) {
	if !r.hour().IsPresent() {
		return r, false
	}
	return r.SetHour(r.hour().ConvertToAM())
}

func (r Recurrence) SetPM() (Recurrence, bool) {
	if !r.hour().IsPresent() {
		return r, false
	}
	return r.SetHour(r.hour().ConvertToPM())
}

// HourText is the 12-hour display of the current hour.
func (r Recurrence) HourText() string {
	return r.hour().String()
}

// MinuteText is the zero-padded current minute.
func (r Recurrence) MinuteText() string {
	return r.minute().String()
}

func (r Recurrence) SetTimeZone(id, name string) Recurrence {
	return r.Clone(Patch{TimeZone: &id, TimeZoneName: &name})
}

// CurrentTimeZoneName is the recurrence's zone name, or fallback when unset.
func (r Recurrence) CurrentTimeZoneName(fallback string) string {
	if r.TimeZoneName != "" {
		return r.TimeZoneName
	}
	return fallback
}

func (r Recurrence) SetMinuteOfHour(m calendar.Minute) (Recurrence, bool) {
	if _, ok := r.rule().(Hourly); !ok {
		return r, false
	}
	return r.Clone(Patch{Rule: Hourly{MinuteOfHour: m}}), true
}

func (r Recurrence) SetMinuteOfHourFromText(text string) (Recurrence, bool) {
	return r.SetMinuteOfHour(calendar.MinuteFromString(text))
}

// HasDayOfWeek reports whether a weekly rule includes day.
func (r Recurrence) HasDayOfWeek(day calendar.DayOfWeek) bool {
	return slices.ContainsFunc(r.DaysOfWeek(), func(d calendar.DayOfWeek) bool {
		return d.Equal(day.BoundedInt)
	})
}

// ToggleDayOfWeek adds or removes day on a weekly rule. Added days go to
// the end, and the repeat count still caps the number of selected days.
func (r Recurrence) ToggleDayOfWeek(day calendar.DayOfWeek) (Recurrence, bool) {
	w, ok := r.rule().(Weekly)
	if !ok || !day.IsValid() {
		return r, false
	}
	days := slices.Clone(w.DaysOfWeek)
	if r.HasDayOfWeek(day) {
		days = slices.DeleteFunc(days, func(d calendar.DayOfWeek) bool {
			return d.Equal(day.BoundedInt)
		})
	} else {
		days = append(days, day)
	}
	w.DaysOfWeek = days
	out := r.Clone(Patch{Rule: w})
	if n, limited := out.TotalTimesToRun.Value(); limited && n > 0 && n < len(days) {
		w.DaysOfWeek = days[len(days)-n:]
		out = out.Clone(Patch{Rule: w})
	}
	return out, true
}

// IsNthWeekdayOfMonth reports the "third Tuesday" monthly variant.
func (r Recurrence) IsNthWeekdayOfMonth() bool {
	return r.TypeName() == KindMonthlyByNthDayOfWeek
}

// MonthlyDay is the day number shown in the monthly editor: the day of
// month, or the ordinal of the nth-weekday variant.
func (r Recurrence) MonthlyDay() calendar.BoundedInt {
	if d := r.DayOfMonth(); d.IsPresent() {
		return d.BoundedInt
	}
	return r.NthDayOfWeek()
}

// MonthlyDayTypeDayOfMonth is the MonthlyDayType of a day-of-month rule.
const MonthlyDayTypeDayOfMonth = "dayOfMonth"

// MonthlyDayType is "dayOfMonth" or the weekday number ("1".."7") of an
// nth-weekday rule.
func (r Recurrence) MonthlyDayType() string {
	if !r.IsNthWeekdayOfMonth() {
		return MonthlyDayTypeDayOfMonth
	}
	if d := r.DayOfWeek(); d.IsValid() {
		return d.String()
	}
	return calendar.Monday.String()
}

func (r Recurrence) isMonthly() bool {
	switch r.rule().(type) {
	case MonthlyByDayOfMonth, MonthlyByNthDayOfWeek:
		return true
	}
	return false
}

// SetMonthlyDay sets the day number on either monthly variant. The
// nth-weekday variant limits it to an ordinal from 1 to 5.
func (r Recurrence) SetMonthlyDay(day calendar.BoundedInt) (Recurrence, bool) {
	if !r.isMonthly() {
		return r, false
	}
	if !r.IsNthWeekdayOfMonth() {
		return r.Clone(Patch{Rule: MonthlyByDayOfMonth{
			TimeOfDay:  r.TimeOfDay(),
			DayOfMonth: calendar.DayOfMonth{BoundedInt: day},
		}}), true
	}
	nth := calendar.NoInt()
	if day.IsPresent() {
		nth = calendar.NewBoundedInt(LimitNthWeekdayNumber(day))
	}
	return r.Clone(Patch{Rule: MonthlyByNthDayOfWeek{
		TimeOfDay:    r.TimeOfDay(),
		NthDayOfWeek: nth,
		DayOfWeek:    r.DayOfWeek(),
	}}), true
}

// SetMonthlyDayType switches between the monthly variants: "dayOfMonth"
// selects the day-of-month rule, a weekday number selects the nth-weekday
// rule on that weekday. The current day number carries over.
func (r Recurrence) SetMonthlyDayType(value string) (Recurrence, bool) {
	if !r.isMonthly() {
		return r, false
	}
	day := r.MonthlyDay()
	if value == MonthlyDayTypeDayOfMonth {
		return r.Clone(Patch{Rule: MonthlyByDayOfMonth{
			TimeOfDay:  r.TimeOfDay(),
			DayOfMonth: calendar.DayOfMonth{BoundedInt: day},
		}}), true
	}
	return r.Clone(Patch{Rule: MonthlyByNthDayOfWeek{
		TimeOfDay:    r.TimeOfDay(),
		NthDayOfWeek: calendar.NewBoundedInt(LimitNthWeekdayNumber(day)),
		DayOfWeek:    calendar.DayOfWeekFromString(value),
	}}), true
}

// SetYearlyDay sets the day, capped at the current month's maximum.
func (r Recurrence) SetYearlyDay(day calendar.DayOfMonth) (Recurrence, bool) {
	y, ok := r.rule().(Yearly)
	if !ok {
		return r, false
	}
	if day.Is(func(v int) bool { return v != 0 }) {
		y.DayOfMonth = y.Month.LimitDayToMax(day)
	} else {
		y.DayOfMonth = calendar.DayOfMonth{}
	}
	return r.Clone(Patch{Rule: y}), true
}

// SetYearlyMonthFromString selects a month ("1".."12", else January) and
// caps the current day to fit it.
func (r Recurrence) SetYearlyMonthFromString(text string) (Recurrence, bool) {
	y, ok := r.rule().(Yearly)
	if !ok {
		return r, false
	}
	y.Month = calendar.MonthFromString(text)
	y.DayOfMonth = y.Month.LimitDayToMax(y.DayOfMonth)
	return r.Clone(Patch{Rule: y}), true
}

// MonthDayPrefix is the label in front of a yearly date.
func (r Recurrence) MonthDayPrefix() string {
	if r.IsOnce() {
		return "On the"
	}
	return "Starting on the"
}
