package recurrence

import "skillsched/internal/calendar"

// Defaults supplies values a transition uses when the recurrence has none,
// plus optional overrides for frequency and the repeat count.
type Defaults struct {
	TimeZone        string
	TimeZoneName    string
	Frequency       *int
	TotalTimesToRun *calendar.BoundedInt
}

// base carries the shared fields into a transition: the run counter is
// reset and the optional overrides are applied.
func (r Recurrence) base(d Defaults) Recurrence {
	out := r
	out.TimesHasRun = 0
	if d.Frequency != nil {
		out.Frequency = *d.Frequency
	}
	if d.TotalTimesToRun != nil {
		out.TotalTimesToRun = *d.TotalTimesToRun
	}
	return out
}

func (r Recurrence) zoned(d Defaults) Recurrence {
	out := r.base(d)
	if out.TimeZone == "" {
		out.TimeZone = d.TimeZone
	}
	if out.TimeZoneName == "" {
		out.TimeZoneName = d.TimeZoneName
	}
	return out
}

// fallbackTimeOfDay is the current time of day, or 9:00 AM.
func (r Recurrence) fallbackTimeOfDay() *TimeOfDay {
	if t := r.TimeOfDay(); t != nil {
		return t
	}
	t := DefaultTimeOfDay()
	return &t
}

func (r Recurrence) fallbackDayOfMonth() calendar.DayOfMonth {
	if d := r.DayOfMonth(); d.Is(func(v int) bool { return v != 0 }) {
		return d
	}
	return calendar.NewDayOfMonth(1)
}

// BecomeMinutely drops the time zone and every time and day field.
func (r Recurrence) BecomeMinutely(d Defaults) Recurrence {
	out := r.base(d)
	out.TimeZone = ""
	out.TimeZoneName = ""
	out.Rule = Minutely{}
	return out
}

// BecomeHourly keeps the minute of the hour as typed, even out of range,
// and starts on the hour only when there is none.
func (r Recurrence) BecomeHourly(d Defaults) Recurrence {
	out := r.zoned(d)
	minute := r.MinuteOfHour()
	if !minute.IsPresent() {
		minute = calendar.NewMinute(0)
	}
	out.Rule = Hourly{MinuteOfHour: minute}
	return out
}

func (r Recurrence) BecomeDaily(d Defaults) Recurrence {
	out := r.zoned(d)
	out.Rule = Daily{TimeOfDay: r.fallbackTimeOfDay()}
	return out
}

// BecomeWeekly keeps the selected days only when already weekly.
func (r Recurrence) BecomeWeekly(d Defaults) Recurrence {
	out := r.zoned(d)
	days := r.DaysOfWeek()
	if days == nil {
		days = []calendar.DayOfWeek{}
	}
	out.Rule = Weekly{TimeOfDay: r.fallbackTimeOfDay(), DaysOfWeek: days}
	return out
}

func (r Recurrence) BecomeMonthlyByDayOfMonth(d Defaults) Recurrence {
	out := r.zoned(d)
	out.Rule = MonthlyByDayOfMonth{
		TimeOfDay:  r.fallbackTimeOfDay(),
		DayOfMonth: r.fallbackDayOfMonth(),
	}
	return out
}

// BecomeMonthlyByNthDayOfWeek keeps an existing ordinal and weekday. A
// day-of-month rule converts its day into an ordinal; otherwise the first
// Monday is used.
func (r Recurrence) BecomeMonthlyByNthDayOfWeek(d Defaults) Recurrence {
	out := r.zoned(d)
	nth := r.NthDayOfWeek()
	if !nth.IsPresent() {
		nth = calendar.NewBoundedInt(LimitNthWeekdayNumber(r.DayOfMonth().BoundedInt))
	}
	day := r.DayOfWeek()
	if !day.IsPresent() {
		day = calendar.Monday
	}
	out.Rule = MonthlyByNthDayOfWeek{
		TimeOfDay:    r.fallbackTimeOfDay(),
		NthDayOfWeek: nth,
		DayOfWeek:    day,
	}
	return out
}

// BecomeYearly keeps the current day of month and month, defaulting both
// to 1.
func (r Recurrence) BecomeYearly(d Defaults) Recurrence {
	out := r.zoned(d)
	month := r.Month()
	if !month.IsPresent() {
		month = calendar.January
	}
	out.Rule = Yearly{
		TimeOfDay:  r.fallbackTimeOfDay(),
		DayOfMonth: r.fallbackDayOfMonth(),
		Month:      month,
	}
	return out
}

// BecomeOnce is a yearly rule that runs a single time.
func (r Recurrence) BecomeOnce(d Defaults) Recurrence {
	once := calendar.NewBoundedInt(1)
	d.Frequency = Ref(1)
	d.TotalTimesToRun = &once
	return r.BecomeYearly(d)
}

// IsOnce reports the single date and time case: yearly, run once.
func (r Recurrence) IsOnce() bool {
	return r.TypeName() == KindYearly && r.TotalTimesToRun.Equal(calendar.NewBoundedInt(1))
}

// Become switches to kind, routing to the matching transition.
func (r Recurrence) Become(kind Kind, d Defaults) Recurrence {
	switch kind {
	case KindHourly:
		return r.BecomeHourly(d)
	case KindDaily:
		return r.BecomeDaily(d)
	case KindWeekly:
		return r.BecomeWeekly(d)
	case KindMonthlyByDayOfMonth:
		return r.BecomeMonthlyByDayOfMonth(d)
	case KindMonthlyByNthDayOfWeek:
		return r.BecomeMonthlyByNthDayOfWeek(d)
	case KindYearly:
		return r.BecomeYearly(d)
	default:
		return r.BecomeMinutely(d)
	}
}

// LimitNthWeekdayNumber turns a day number into an ordinal from 1 to 5
// using its last digit. Absent days become 1.
func LimitNthWeekdayNumber(day calendar.BoundedInt) int {
	v, ok := day.Value()
	if !ok {
		return 1
	}
	return max(1, min(v%10, 5))
}
