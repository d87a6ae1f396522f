package ics

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "skillsched/internal/log"
	"skillsched/internal/schedule"
)

const (
	productID     = "skillsched"
	uidDomain     = "@skillsched"
	localDateTime = "20060102T150405"
)

// Export builds a calendar with one recurring VEVENT per valid action. The
// first occurrence after now becomes DTSTART so the RRULE interval lines up
// with the next run. Invalid and exhausted actions are left out.
func Export(actions []schedule.ScheduledAction, channels []schedule.ScheduleChannel, now time.Time) *ical.Calendar {
	cal := ical.NewCalendarFor(productID)
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName("Scheduled actions")

	for _, a := range actions {
		if !a.IsValid() {
			continue
		}
		start, ok, err := a.Recurrence.NextOccurrence(now)
		if err != nil {
			appLog.Error("ics export: next occurrence failed", err, "id", a.ID)
			continue
		}
		if !ok {
			continue
		}
		// Interval and count restart at DTSTART.
		rule, err := a.Recurrence.RRuleString()
		if err != nil {
			appLog.Error("ics export: rrule failed", err, "id", a.ID)
			continue
		}

		id := a.ID
		if id == "" {
			id = uuid.NewString()
		}
		ev := cal.AddEvent(id + uidDomain)
		ev.SetDtStampTime(now)
		ev.SetSummary(a.Summary())
		ev.SetDescription(describe(a, channels))
		if tz := a.Recurrence.TimeZone; tz != "" && tz != "UTC" {
			ev.SetProperty(ical.ComponentPropertyDtStart, start.Format(localDateTime), ical.WithTZID(tz))
		} else {
			ev.SetStartAt(start)
		}
		ev.AddRrule(rule)
	}
	return cal
}

// WriteCalendar serializes the exported calendar to w.
func WriteCalendar(w io.Writer, actions []schedule.ScheduledAction, channels []schedule.ScheduleChannel, now time.Time) error {
	return Export(actions, channels, now).SerializeTo(w)
}

func describe(a schedule.ScheduledAction, channels []schedule.ScheduleChannel) string {
	where := "channel " + a.Channel
	if c, ok := schedule.FindChannel(channels, a.Channel); ok {
		where = c.Description()
	}
	return a.Recurrence.Describe() + " in " + where
}
