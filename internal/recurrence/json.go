package recurrence

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"skillsched/internal/calendar"
)

// wireRecurrence is the flat shape persisted by the backend and consumed by
// the editor. Fields that do not belong to typeName are null on the wire.
type wireRecurrence struct {
	ID              *string              `json:"id"`
	DisplayString   *string              `json:"displayString"`
	Frequency       *int                 `json:"frequency"`
	TimesHasRun     int                  `json:"timesHasRun"`
	TotalTimesToRun calendar.BoundedInt  `json:"totalTimesToRun"`
	TypeName        string               `json:"typeName"`
	TimeOfDay       *TimeOfDay           `json:"timeOfDay"`
	TimeZone        *string              `json:"timeZone"`
	TimeZoneName    *string              `json:"timeZoneName"`
	MinuteOfHour    calendar.Minute      `json:"minuteOfHour"`
	DayOfWeek       calendar.DayOfWeek   `json:"dayOfWeek"`
	DayOfMonth      calendar.DayOfMonth  `json:"dayOfMonth"`
	NthDayOfWeek    calendar.BoundedInt  `json:"nthDayOfWeek"`
	Month           calendar.Month       `json:"month"`
	DaysOfWeek      []calendar.DayOfWeek `json:"daysOfWeek"`
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// MarshalJSON writes a frequency of 0 (no number typed) as null.
func (r Recurrence) MarshalJSON() ([]byte, error) {
	var freq *int
	if r.Frequency != 0 {
		f := r.Frequency
		freq = &f
	}
	w := wireRecurrence{
		ID:              optionalString(r.ID),
		DisplayString:   optionalString(r.DisplayString),
		Frequency:       freq,
		TimesHasRun:     r.TimesHasRun,
		TotalTimesToRun: r.TotalTimesToRun,
		TypeName:        string(r.TypeName()),
		TimeOfDay:       r.TimeOfDay(),
		TimeZone:        optionalString(r.TimeZone),
		TimeZoneName:    optionalString(r.TimeZoneName),
		MinuteOfHour:    r.MinuteOfHour(),
		DayOfWeek:       r.DayOfWeek(),
		DayOfMonth:      r.DayOfMonth(),
		NthDayOfWeek:    r.NthDayOfWeek(),
		Month:           r.Month(),
		DaysOfWeek:      r.DaysOfWeek(),
	}
	if w.DaysOfWeek == nil {
		w.DaysOfWeek = []calendar.DayOfWeek{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the flat shape. Fields that do not belong to typeName
// are dropped. A missing frequency reads as 1 and a null one as 0, which is
// invalid. An unknown typeName is an error.
func (r *Recurrence) UnmarshalJSON(data []byte) error {
	var w wireRecurrence
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("recurrence: decode: %w", err)
	}
	kind, err := ParseKind(w.TypeName)
	if err != nil {
		return err
	}
	out := Recurrence{
		Frequency:       1,
		TimesHasRun:     w.TimesHasRun,
		TotalTimesToRun: w.TotalTimesToRun,
	}
	if w.ID != nil {
		out.ID = *w.ID
	}
	if w.DisplayString != nil {
		out.DisplayString = *w.DisplayString
	}
	switch {
	case w.Frequency != nil:
		out.Frequency = *w.Frequency
	case hasNullKey(data, "frequency"):
		out.Frequency = 0
	}
	if w.TimeZone != nil {
		out.TimeZone = *w.TimeZone
	}
	if w.TimeZoneName != nil {
		out.TimeZoneName = *w.TimeZoneName
	}
	switch kind {
	case KindMinutely:
		out.Rule = Minutely{}
	case KindHourly:
		out.Rule = Hourly{MinuteOfHour: w.MinuteOfHour}
	case KindDaily:
		out.Rule = Daily{TimeOfDay: w.TimeOfDay}
	case KindWeekly:
		days := w.DaysOfWeek
		if days == nil {
			days = []calendar.DayOfWeek{}
		}
		out.Rule = Weekly{TimeOfDay: w.TimeOfDay, DaysOfWeek: days}
	case KindMonthlyByDayOfMonth:
		out.Rule = MonthlyByDayOfMonth{TimeOfDay: w.TimeOfDay, DayOfMonth: w.DayOfMonth}
	case KindMonthlyByNthDayOfWeek:
		out.Rule = MonthlyByNthDayOfWeek{TimeOfDay: w.TimeOfDay, NthDayOfWeek: w.NthDayOfWeek, DayOfWeek: w.DayOfWeek}
	case KindYearly:
		out.Rule = Yearly{TimeOfDay: w.TimeOfDay, DayOfMonth: w.DayOfMonth, Month: w.Month}
	}
	*r = out
	return nil
}

func hasNullKey(data []byte, key string) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return false
	}
	raw, ok := fields[key]
	return ok && string(bytes.TrimSpace(raw)) == "null"
}

// Parse decodes a single recurrence from JSON.
func Parse(data []byte) (Recurrence, error) {
	var r Recurrence
	if err := json.Unmarshal(data, &r); err != nil {
		return Recurrence{}, err
	}
	return r, nil
}
