package recurrence

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	"skillsched/internal/calendar"
)

var (
	// ErrInvalid is returned by the calendar bridges for recurrences that
	// fail IsValid.
	ErrInvalid = errors.New("recurrence: invalid recurrence")
	// ErrExhausted is returned when a limited recurrence has no runs left.
	ErrExhausted = errors.New("recurrence: no runs remaining")
)

// maxIterations bounds how far NextOccurrences walks a rule looking for
// matches, e.g. a monthly rule on the 31st skips short months.
const maxIterations = 10000

// rruleWeekdays is indexed by ISO weekday minus one.
var rruleWeekdays = [7]rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

// Location resolves TimeZone. Empty or unknown zones resolve to UTC.
func (r Recurrence) Location() *time.Location {
	if r.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(r.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ROption converts the recurrence into rrule-go options starting at
// dtstart. The remaining runs, if limited, become COUNT.
func (r Recurrence) ROption(dtstart time.Time) (rrule.ROption, error) {
	if !r.IsValid() {
		return rrule.ROption{}, ErrInvalid
	}
	opt := rrule.ROption{
		Interval: r.Frequency,
		Bysecond: []int{0},
	}
	if !dtstart.IsZero() {
		opt.Dtstart = dtstart.In(r.Location()).Truncate(time.Minute)
	}
	if remaining, limited := r.RemainingRuns(); limited {
		if remaining == 0 {
			return rrule.ROption{}, ErrExhausted
		}
		opt.Count = remaining
	}
	if t := r.TimeOfDay(); t != nil {
		h, _ := t.Hour.Value()
		m, _ := t.Minute.Value()
		opt.Byhour = []int{h}
		opt.Byminute = []int{m}
	}

	switch rule := r.rule().(type) {
	case Minutely:
		opt.Freq = rrule.MINUTELY
	case Hourly:
		opt.Freq = rrule.HOURLY
		m, _ := rule.MinuteOfHour.Value()
		opt.Byminute = []int{m}
	case Daily:
		opt.Freq = rrule.DAILY
	case Weekly:
		opt.Freq = rrule.WEEKLY
		seen := make(map[int]bool, len(rule.DaysOfWeek))
		for _, d := range rule.DaysOfWeek {
			v, _ := d.Value()
			if seen[v] {
				continue
			}
			seen[v] = true
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[v-1])
		}
	case MonthlyByDayOfMonth:
		opt.Freq = rrule.MONTHLY
		d, _ := rule.DayOfMonth.Value()
		opt.Bymonthday = []int{d}
	case MonthlyByNthDayOfWeek:
		opt.Freq = rrule.MONTHLY
		n, _ := rule.NthDayOfWeek.Value()
		d, _ := rule.DayOfWeek.Value()
		opt.Byweekday = []rrule.Weekday{rruleWeekdays[d-1].Nth(n)}
	case Yearly:
		opt.Freq = rrule.YEARLY
		d, _ := rule.DayOfMonth.Value()
		m, _ := rule.Month.Value()
		opt.Bymonth = []int{m}
		opt.Bymonthday = []int{d}
	}
	return opt, nil
}

// RRule builds an rrule-go rule starting at dtstart.
func (r Recurrence) RRule(dtstart time.Time) (*rrule.RRule, error) {
	opt, err := r.ROption(dtstart)
	if err != nil {
		return nil, err
	}
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("recurrence: build rrule: %w", err)
	}
	return rule, nil
}

// RRuleString renders the RFC 5545 RRULE value, without DTSTART.
func (r Recurrence) RRuleString() (string, error) {
	opt, err := r.ROption(time.Time{})
	if err != nil {
		return "", err
	}
	return opt.RRuleString(), nil
}

// NextOccurrences returns up to n occurrences strictly after after, in the
// recurrence's location. Intervals count from after, since a recurrence
// carries no anchor date of its own. Exhausted recurrences return none.
func (r Recurrence) NextOccurrences(after time.Time, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, nil
	}
	rule, err := r.RRule(after)
	if errors.Is(err, ErrExhausted) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, n)
	next := rule.Iterator()
	for i := 0; i < maxIterations && len(out) < n; i++ {
		t, ok := next()
		if !ok {
			break
		}
		if t.After(after) {
			out = append(out, t)
		}
	}
	return out, nil
}

// OccurrencesBetween returns the occurrences in the inclusive window
// [start, end], at most limit of them, with intervals counted from start.
func (r Recurrence) OccurrencesBetween(start, end time.Time, limit int) ([]time.Time, error) {
	if limit <= 0 || end.Before(start) {
		return nil, nil
	}
	rule, err := r.RRule(start)
	if errors.Is(err, ErrExhausted) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []time.Time
	next := rule.Iterator()
	for len(out) < limit {
		t, ok := next()
		if !ok || t.After(end) {
			break
		}
		if !t.Before(start) {
			out = append(out, t)
		}
	}
	return out, nil
}

// NextOccurrence is the first occurrence after after.
func (r Recurrence) NextOccurrence(after time.Time) (time.Time, bool, error) {
	times, err := r.NextOccurrences(after, 1)
	if err != nil || len(times) == 0 {
		return time.Time{}, false, err
	}
	return times[0], true, nil
}

// NextOccurrenceFrom is the first occurrence strictly after after, with
// intervals counted from anchor. The repeat count is ignored, so callers
// that re-anchor on a past run keep the interval phase without losing a
// run to COUNT. ok is false when nothing matches within the walk limit.
func (r Recurrence) NextOccurrenceFrom(anchor, after time.Time) (time.Time, bool, error) {
	unlimited := r.Clone(Patch{TotalTimesToRun: Ref(calendar.NoInt())})
	rule, err := unlimited.RRule(anchor)
	if err != nil {
		return time.Time{}, false, err
	}
	next := rule.Iterator()
	for i := 0; i < maxIterations; i++ {
		t, ok := next()
		if !ok {
			break
		}
		if t.After(after) {
			return t, true, nil
		}
	}
	return time.Time{}, false, nil
}

// FromRRule builds a recurrence from an RRULE value such as
// "FREQ=WEEKLY;BYDAY=MO,WE". Missing times and days are taken from
// dtstart; a zero dtstart falls back to 9:00 AM on the 1st of January.
// Rules with more structure than a recurrence can hold (several months,
// several month days) keep only their first value, and UNTIL is ignored.
func FromRRule(value string, dtstart time.Time, timeZone string) (Recurrence, error) {
	loc := time.UTC
	if timeZone != "" {
		l, err := time.LoadLocation(timeZone)
		if err != nil {
			return Recurrence{}, fmt.Errorf("recurrence: time zone %q: %w", timeZone, err)
		}
		loc = l
	}
	opt, err := rrule.StrToROptionInLocation(value, loc)
	if err != nil {
		return Recurrence{}, fmt.Errorf("recurrence: parse rrule: %w", err)
	}
	if !opt.Dtstart.IsZero() && dtstart.IsZero() {
		dtstart = opt.Dtstart
	}

	start := DefaultTimeOfDay()
	startDay := calendar.NewDayOfMonth(1)
	startMonth := calendar.January
	startWeekday := calendar.Monday
	if !dtstart.IsZero() {
		local := dtstart.In(loc)
		start = NewTimeOfDay(local.Hour(), local.Minute())
		startDay = calendar.NewDayOfMonth(local.Day())
		startMonth = calendar.NewMonth(int(local.Month()))
		startWeekday = calendar.DayOfWeekFromWeekday(local.Weekday())
	}
	tod := start
	if len(opt.Byhour) > 0 {
		tod.Hour = calendar.NewHour(opt.Byhour[0])
	}
	if len(opt.Byminute) > 0 {
		tod.Minute = calendar.NewMinute(opt.Byminute[0])
	}

	out := New()
	out.TimeZone = timeZone
	if opt.Interval > 0 {
		out.Frequency = opt.Interval
	}
	if opt.Count > 0 {
		out.TotalTimesToRun = calendar.NewBoundedInt(opt.Count)
	}

	switch opt.Freq {
	case rrule.MINUTELY:
		out.Rule = Minutely{}
		out.TimeZone = ""
	case rrule.HOURLY:
		out.Rule = Hourly{MinuteOfHour: tod.Minute}
	case rrule.DAILY:
		out.Rule = Daily{TimeOfDay: &tod}
	case rrule.WEEKLY:
		days := make([]calendar.DayOfWeek, 0, len(opt.Byweekday))
		for _, wd := range opt.Byweekday {
			days = append(days, calendar.NewDayOfWeek(wd.Day()+1))
		}
		if len(days) == 0 {
			days = append(days, startWeekday)
		}
		slices.SortFunc(days, func(a, b calendar.DayOfWeek) int {
			return a.ValueOr(0) - b.ValueOr(0)
		})
		out.Rule = Weekly{TimeOfDay: &tod, DaysOfWeek: days}
	case rrule.MONTHLY:
		if len(opt.Byweekday) > 0 {
			wd := opt.Byweekday[0]
			nth := wd.N()
			if nth == 0 && len(opt.Bysetpos) > 0 {
				nth = opt.Bysetpos[0]
			}
			if nth < 1 || nth > 5 {
				return Recurrence{}, fmt.Errorf("recurrence: unsupported monthly ordinal %d", nth)
			}
			out.Rule = MonthlyByNthDayOfWeek{
				TimeOfDay:    &tod,
				NthDayOfWeek: calendar.NewBoundedInt(nth),
				DayOfWeek:    calendar.NewDayOfWeek(wd.Day() + 1),
			}
			break
		}
		day := startDay
		if len(opt.Bymonthday) > 0 {
			day = calendar.NewDayOfMonth(opt.Bymonthday[0])
		}
		out.Rule = MonthlyByDayOfMonth{TimeOfDay: &tod, DayOfMonth: day}
	case rrule.YEARLY:
		day, month := startDay, startMonth
		if len(opt.Bymonthday) > 0 {
			day = calendar.NewDayOfMonth(opt.Bymonthday[0])
		}
		if len(opt.Bymonth) > 0 {
			month = calendar.NewMonth(opt.Bymonth[0])
		}
		out.Rule = Yearly{TimeOfDay: &tod, DayOfMonth: month.LimitDayToMax(day), Month: month}
	default:
		return Recurrence{}, fmt.Errorf("recurrence: unsupported rrule frequency %v", opt.Freq)
	}
	return out, nil
}
