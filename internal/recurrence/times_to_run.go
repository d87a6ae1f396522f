package recurrence

import (
	"fmt"

	"skillsched/internal/calendar"
)

// MaxTotalTimesToRun bounds the repeat count accepted from text input.
const MaxTotalTimesToRun = 99999999

// SetTotalTimesToRun changes the repeat count. A count of 1 forces the
// frequency to 1. A changed count resets the run counter. A weekly rule
// with more selected days than the count keeps only the last count days.
func (r Recurrence) SetTotalTimesToRun(total calendar.BoundedInt) Recurrence {
	out := r.Clone(Patch{TotalTimesToRun: &total})
	if !total.Equal(r.TotalTimesToRun) {
		out.TimesHasRun = 0
	}
	n, ok := total.Value()
	if ok && n == 1 {
		out.Frequency = 1
	}
	if w, isWeekly := out.Rule.(Weekly); isWeekly && ok && n > 0 && n < len(w.DaysOfWeek) {
		w.DaysOfWeek = w.DaysOfWeek[len(w.DaysOfWeek)-n:]
		out.Rule = w
	}
	return out
}

// ToggleTimesToRun switches between a limited and an indefinite repeat.
// Enabling keeps a non-zero count or starts at 1.
func (r Recurrence) ToggleTimesToRun(limited bool) Recurrence {
	if !limited {
		return r.SetTotalTimesToRun(calendar.NoInt())
	}
	if r.TotalTimesToRun.Is(func(n int) bool { return n != 0 }) {
		return r.SetTotalTimesToRun(r.TotalTimesToRun)
	}
	return r.SetTotalTimesToRun(calendar.NewBoundedInt(1))
}

// SetTotalTimesFromString parses typed text and clamps it to
// 1..MaxTotalTimesToRun. Text without a number clears the count.
func (r Recurrence) SetTotalTimesFromString(text string) Recurrence {
	return r.SetTotalTimesToRun(calendar.ParseBoundedInt(text).WithinRange(1, MaxTotalTimesToRun))
}

// HasLimitedRuns reports whether a non-zero repeat count is set.
func (r Recurrence) HasLimitedRuns() bool {
	return r.TotalTimesToRun.Is(func(n int) bool { return n != 0 })
}

// TotalTimesString is the repeat count as text, "" when unlimited.
func (r Recurrence) TotalTimesString() string {
	if !r.HasLimitedRuns() {
		return ""
	}
	return r.TotalTimesToRun.String()
}

// TotalTimesUnit is the noun that follows the count.
func (r Recurrence) TotalTimesUnit() string {
	if r.TotalTimesToRun.Equal(calendar.NewBoundedInt(1)) {
		return "time"
	}
	return "times"
}

// RemainingRuns returns how many runs are left, and false when the repeat
// count is unlimited.
func (r Recurrence) RemainingRuns() (int, bool) {
	if !r.HasLimitedRuns() {
		return 0, false
	}
	total, _ := r.TotalTimesToRun.Value()
	return max(total-r.TimesHasRun, 0), true
}

// TimesRemainingText describes the remaining runs once at least one run
// has happened, e.g. "(2 more times remaining)".
func (r Recurrence) TimesRemainingText() string {
	remaining, limited := r.RemainingRuns()
	total, _ := r.TotalTimesToRun.Value()
	if !limited || remaining <= 0 || remaining >= total {
		return ""
	}
	if remaining == 1 {
		return "(1 more time remaining)"
	}
	return fmt.Sprintf("(%d more times remaining)", remaining)
}
