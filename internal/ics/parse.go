package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "skillsched/internal/log"
	"skillsched/internal/model"
)

// ParseICS reads the VEVENTs of a single ICS payload.
//
//   - Start keeps the TZID zone when present; UTC values stay UTC and
//     floating values are read in time.Local.
//   - RRULE is kept raw; conversion happens in ToScheduledActions.
//   - Overrides (RECURRENCE-ID) and all-day events are skipped, since a
//     scheduled action has no way to represent them.
func ParseICS(src Source, body []byte) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, fmt.Errorf("ics: parse: %w", err)
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		ev, skip, perr := parseVEvent(src, ve)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		if skip != "" {
			appLog.Debug("ics vevent skipped", "id", src.ID, "uid", ev.UID, "reason", skip)
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events))
	return events, nil
}

// parseVEvent returns a non-empty skip reason for events that parse but
// cannot become scheduled actions.
func parseVEvent(src Source, ve *ical.VEvent) (model.Event, string, error) {
	out := model.Event{SourceID: src.ID}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, "", errors.New("missing UID")
	}
	out.UID = uid.Value

	if ve.GetProperty(ical.ComponentPropertyRecurrenceId) != nil {
		return out, "override", nil
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, "", errors.New("missing DTSTART")
	}
	if !strings.Contains(dtStart.Value, "T") || hasParam(dtStart, "VALUE", "DATE") {
		return out, "all-day", nil
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return out, "", fmt.Errorf("DTSTART: %w", err)
	}
	out.Start = start
	if tz := dtStart.ICalParameters["TZID"]; len(tz) > 0 {
		out.TimeZone = tz[0]
	} else if strings.HasSuffix(dtStart.Value, "Z") {
		out.TimeZone = "UTC"
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RRule = p.Value
	}
	return out, "", nil
}

func hasParam(p *ical.IANAProperty, name, value string) bool {
	for _, v := range p.ICalParameters[name] {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// floating reinterprets the wall clock of a floating time in loc.
func floating(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}
