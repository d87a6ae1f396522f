package ics

import (
	"fmt"
	"time"

	"skillsched/internal/model"
	"skillsched/internal/recurrence"
	"skillsched/internal/schedule"
)

// onceRule turns a single event into a yearly recurrence that runs once.
const onceRule = "FREQ=YEARLY;COUNT=1"

// ImportDefaults fills what an ICS event does not carry.
type ImportDefaults struct {
	// TimeZone is used for floating DTSTART values.
	TimeZone     string
	TimeZoneName string
	Channel      string
}

// ToScheduledActions converts events into new message actions whose text
// is the event summary. Events that cannot be converted are reported and
// left out.
func ToScheduledActions(events []model.Event, d ImportDefaults) ([]schedule.ScheduledAction, []error) {
	actions := make([]schedule.ScheduledAction, 0, len(events))
	var errs []error
	for _, ev := range events {
		a, err := toScheduledAction(ev, d)
		if err != nil {
			errs = append(errs, fmt.Errorf("ics: event %s: %w", ev.UID, err))
			continue
		}
		actions = append(actions, a)
	}
	return actions, errs
}

func toScheduledAction(ev model.Event, d ImportDefaults) (schedule.ScheduledAction, error) {
	tz := ev.TimeZone
	start := ev.Start
	if tz == "" {
		tz = d.TimeZone
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return schedule.ScheduledAction{}, err
		}
		start = floating(start, loc)
	}
	rule := ev.RRule
	if rule == "" {
		rule = onceRule
	}
	r, err := recurrence.FromRRule(rule, start, tz)
	if err != nil {
		return schedule.ScheduledAction{}, err
	}
	if r.TimeZone != "" && r.TimeZone == d.TimeZone {
		r.TimeZoneName = d.TimeZoneName
	}
	return schedule.ScheduledAction{
		ScheduleType: schedule.TypeMessage,
		Trigger:      ev.Summary,
		Arguments:    []schedule.Argument{},
		Recurrence:   r,
		Channel:      d.Channel,
	}, nil
}
