package recurrence

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
)

// ErrNotCronExpressible is returned by CronSpec for rules a five-field cron
// expression cannot state exactly, such as "every 7 minutes" or "the third
// Tuesday".
var ErrNotCronExpressible = errors.New("recurrence: rule has no cron equivalent")

// CronSpec renders the recurrence as a standard five-field cron expression,
// prefixed with CRON_TZ when a time zone is set. Repeat counts are not part
// of the expression.
func (r Recurrence) CronSpec() (string, error) {
	if !r.IsValid() {
		return "", ErrInvalid
	}
	freq := r.Frequency
	var minute, hour string
	if t := r.TimeOfDay(); t != nil {
		m, _ := t.Minute.Value()
		h, _ := t.Hour.Value()
		minute, hour = strconv.Itoa(m), strconv.Itoa(h)
	}

	var fields []string
	switch rule := r.rule().(type) {
	case Minutely:
		step, ok := cronStep(freq, 60)
		if !ok {
			return "", ErrNotCronExpressible
		}
		fields = []string{step, "*", "*", "*", "*"}
	case Hourly:
		step, ok := cronStep(freq, 24)
		if !ok {
			return "", ErrNotCronExpressible
		}
		m, _ := rule.MinuteOfHour.Value()
		fields = []string{strconv.Itoa(m), step, "*", "*", "*"}
	case Daily:
		if freq != 1 {
			return "", ErrNotCronExpressible
		}
		fields = []string{minute, hour, "*", "*", "*"}
	case Weekly:
		if freq != 1 {
			return "", ErrNotCronExpressible
		}
		days := make([]int, 0, len(rule.DaysOfWeek))
		for _, d := range rule.DaysOfWeek {
			v, _ := d.Value()
			days = append(days, v%7)
		}
		slices.Sort(days)
		days = slices.Compact(days)
		parts := make([]string, len(days))
		for i, d := range days {
			parts[i] = strconv.Itoa(d)
		}
		fields = []string{minute, hour, "*", "*", strings.Join(parts, ",")}
	case MonthlyByDayOfMonth:
		step, ok := cronStep(freq, 12)
		if !ok {
			return "", ErrNotCronExpressible
		}
		fields = []string{minute, hour, rule.DayOfMonth.String(), step, "*"}
	case MonthlyByNthDayOfWeek:
		return "", ErrNotCronExpressible
	case Yearly:
		if freq != 1 {
			return "", ErrNotCronExpressible
		}
		fields = []string{minute, hour, rule.DayOfMonth.String(), rule.Month.String(), "*"}
	}

	spec := strings.Join(fields, " ")
	if r.TimeZone != "" {
		spec = "CRON_TZ=" + r.TimeZone + " " + spec
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return "", fmt.Errorf("recurrence: cron spec %q: %w", spec, err)
	}
	return spec, nil
}

// CronSchedule parses CronSpec into a robfig/cron schedule.
func (r Recurrence) CronSchedule() (cron.Schedule, error) {
	spec, err := r.CronSpec()
	if err != nil {
		return nil, err
	}
	return cron.ParseStandard(spec)
}

// cronStep renders an interval as a cron step over a field with size
// values. Only intervals dividing the field evenly repeat exactly, and the
// steps are aligned to the start of the field (midnight, January).
func cronStep(freq, size int) (string, bool) {
	switch {
	case freq == 1:
		return "*", true
	case freq < size && size%freq == 0:
		return "*/" + strconv.Itoa(freq), true
	default:
		return "", false
	}
}
