package recurrence

// IsValid reports whether the recurrence is complete enough to schedule.
func (r Recurrence) IsValid() bool {
	return r.IsValidMinutely() ||
		r.IsValidHourly() ||
		r.IsValidDaily() ||
		r.IsValidWeekly() ||
		r.IsValidMonthlyByDayOfMonth() ||
		r.IsValidMonthlyByNthDayOfWeek() ||
		r.IsValidYearly()
}

func (r Recurrence) HasValidFrequency() bool {
	return r.Frequency > 0
}

func (r Recurrence) HasValidTimeZone() bool {
	return r.TimeZone != ""
}

// HasValidTimeOfDay requires a time of day with a valid hour and minute,
// and a time zone to interpret it in.
func (r Recurrence) HasValidTimeOfDay() bool {
	t := r.TimeOfDay()
	return t != nil && r.HasValidTimeZone() && t.IsValid()
}

// HasValidNthDayOfWeek accepts 1 through 5.
func (r Recurrence) HasValidNthDayOfWeek() bool {
	return r.NthDayOfWeek().Is(func(n int) bool { return n >= 1 && n <= 5 })
}

func (r Recurrence) IsValidMinutely() bool {
	return r.TypeName() == KindMinutely && r.HasValidFrequency()
}

func (r Recurrence) IsValidHourly() bool {
	return r.TypeName() == KindHourly &&
		r.HasValidFrequency() &&
		r.MinuteOfHour().IsValid() &&
		r.HasValidTimeZone()
}

func (r Recurrence) IsValidDaily() bool {
	return r.TypeName() == KindDaily &&
		r.HasValidFrequency() &&
		r.HasValidTimeOfDay()
}

func (r Recurrence) IsValidWeekly() bool {
	if r.TypeName() != KindWeekly || !r.HasValidFrequency() || !r.HasValidTimeOfDay() {
		return false
	}
	days := r.DaysOfWeek()
	if len(days) == 0 {
		return false
	}
	for _, d := range days {
		if !d.IsValid() {
			return false
		}
	}
	return true
}

func (r Recurrence) IsValidMonthlyByDayOfMonth() bool {
	return r.TypeName() == KindMonthlyByDayOfMonth &&
		r.HasValidFrequency() &&
		r.HasValidTimeOfDay() &&
		r.DayOfMonth().IsValid()
}

func (r Recurrence) IsValidMonthlyByNthDayOfWeek() bool {
	return r.TypeName() == KindMonthlyByNthDayOfWeek &&
		r.HasValidFrequency() &&
		r.HasValidTimeOfDay() &&
		r.HasValidNthDayOfWeek() &&
		r.DayOfWeek().IsValid()
}

func (r Recurrence) IsValidYearly() bool {
	return r.TypeName() == KindYearly &&
		r.HasValidFrequency() &&
		r.HasValidTimeOfDay() &&
		r.DayOfMonth().IsValid() &&
		r.Month().IsValid()
}

// Validity is a per-check breakdown of IsValid, for reporting why a
// recurrence cannot be saved.
type Validity struct {
	Valid           bool `json:"valid"`
	TypeName        Kind `json:"typeName"`
	ValidFrequency  bool `json:"validFrequency"`
	ValidTimeZone   bool `json:"validTimeZone"`
	ValidTimeOfDay  bool `json:"validTimeOfDay"`
	ValidKindFields bool `json:"validKindFields"`
}

func (r Recurrence) Validity() Validity {
	return Validity{
		Valid:           r.IsValid(),
		TypeName:        r.TypeName(),
		ValidFrequency:  r.HasValidFrequency(),
		ValidTimeZone:   r.HasValidTimeZone(),
		ValidTimeOfDay:  r.HasValidTimeOfDay(),
		ValidKindFields: r.hasValidKindFields(),
	}
}

func (r Recurrence) hasValidKindFields() bool {
	switch rule := r.rule().(type) {
	case Minutely:
		return true
	case Hourly:
		return rule.MinuteOfHour.IsValid()
	case Daily:
		return true
	case Weekly:
		if len(rule.DaysOfWeek) == 0 {
			return false
		}
		for _, d := range rule.DaysOfWeek {
			if !d.IsValid() {
				return false
			}
		}
		return true
	case MonthlyByDayOfMonth:
		return rule.DayOfMonth.IsValid()
	case MonthlyByNthDayOfWeek:
		return r.HasValidNthDayOfWeek() && rule.DayOfWeek.IsValid()
	case Yearly:
		return rule.DayOfMonth.IsValid() && rule.Month.IsValid()
	}
	return false
}
