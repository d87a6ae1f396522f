package recurrence

import (
	"fmt"
	"strings"
)

// Describe renders a short English summary such as
// "Every 2 weeks on Monday and Friday at 9:00 AM". It is a local stand-in
// for DisplayString, which the backend derives.
func (r Recurrence) Describe() string {
	if !r.IsValid() {
		return "Invalid schedule"
	}
	var b strings.Builder
	switch rule := r.rule().(type) {
	case Minutely:
		b.WriteString(every(r.Frequency, "minute"))
	case Hourly:
		b.WriteString(every(r.Frequency, "hour"))
		m, _ := rule.MinuteOfHour.Value()
		if m == 0 {
			b.WriteString(" on the hour")
		} else {
			fmt.Fprintf(&b, " at %d minutes past the hour", m)
		}
	case Daily:
		b.WriteString(every(r.Frequency, "day"))
	case Weekly:
		names := make([]string, 0, len(rule.DaysOfWeek))
		for _, d := range rule.DaysOfWeek {
			names = append(names, d.Name())
		}
		b.WriteString(every(r.Frequency, "week"))
		b.WriteString(" on ")
		b.WriteString(joinAnd(names))
	case MonthlyByDayOfMonth:
		b.WriteString(every(r.Frequency, "month"))
		b.WriteString(" on the ")
		b.WriteString(rule.DayOfMonth.WithOrdinal())
	case MonthlyByNthDayOfWeek:
		n, _ := rule.NthDayOfWeek.Value()
		b.WriteString(every(r.Frequency, "month"))
		fmt.Fprintf(&b, " on the %d%s %s", n, ordinal(n), rule.DayOfWeek.Name())
	case Yearly:
		if r.IsOnce() {
			b.WriteString("Once")
		} else {
			b.WriteString(every(r.Frequency, "year"))
		}
		fmt.Fprintf(&b, " on %s %s", rule.Month.Name(), rule.DayOfMonth.WithOrdinal())
	}
	if t := r.TimeOfDay(); t != nil {
		b.WriteString(" at ")
		b.WriteString(t.String())
	}
	if r.TimeZoneName != "" {
		fmt.Fprintf(&b, " (%s)", r.TimeZoneName)
	} else if r.TimeZone != "" {
		fmt.Fprintf(&b, " (%s)", r.TimeZone)
	}
	if r.HasLimitedRuns() && !r.IsOnce() {
		fmt.Fprintf(&b, ", %s %s", r.TotalTimesString(), r.TotalTimesUnit())
	}
	return b.String()
}

func every(n int, unit string) string {
	if n == 1 {
		return "Every " + unit
	}
	return fmt.Sprintf("Every %d %ss", n, unit)
}

func ordinal(n int) string {
	switch n {
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

func joinAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
