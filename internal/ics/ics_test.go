package ics

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillsched/internal/calendar"
	"skillsched/internal/recurrence"
	"skillsched/internal/schedule"
)

const feed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup\r\n" +
	"SUMMARY:standup time\r\n" +
	"DTSTART;TZID=America/Chicago:20240304T093000\r\n" +
	"RRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:launch\r\n" +
	"SUMMARY:launch reminder\r\n" +
	"DTSTART:20240615T160000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:floating\r\n" +
	"SUMMARY:monthly review\r\n" +
	"DTSTART:20240320T140000\r\n" +
	"RRULE:FREQ=MONTHLY;BYDAY=3WE\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:holiday\r\n" +
	"SUMMARY:day off\r\n" +
	"DTSTART;VALUE=DATE:20240704\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup\r\n" +
	"RECURRENCE-ID;TZID=America/Chicago:20240306T093000\r\n" +
	"SUMMARY:moved standup\r\n" +
	"DTSTART;TZID=America/Chicago:20240306T100000\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"SUMMARY:no uid\r\n" +
	"DTSTART:20240615T160000Z\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseICS(t *testing.T) {
	events, err := ParseICS(Source{ID: "team"}, []byte(feed))
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "standup", events[0].UID)
	assert.Equal(t, "America/Chicago", events[0].TimeZone)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO,WE,FR", events[0].RRule)
	assert.Equal(t, 9, events[0].Start.Hour())

	assert.Equal(t, "UTC", events[1].TimeZone)
	assert.Empty(t, events[1].RRule)

	assert.Empty(t, events[2].TimeZone)
	assert.Equal(t, "team", events[2].SourceID)

	_, err = ParseICS(Source{}, nil)
	assert.Error(t, err)
}

func TestToScheduledActions(t *testing.T) {
	events, err := ParseICS(Source{ID: "team"}, []byte(feed))
	require.NoError(t, err)

	actions, errs := ToScheduledActions(events, ImportDefaults{
		TimeZone:     "America/New_York",
		TimeZoneName: "Eastern Time",
		Channel:      "C1",
	})
	require.Empty(t, errs)
	require.Len(t, actions, 3)
	for _, a := range actions {
		assert.True(t, a.IsValid(), a.Trigger)
		assert.True(t, a.IsNew())
		assert.Equal(t, "C1", a.Channel)
	}

	standup := actions[0].Recurrence
	assert.Equal(t, recurrence.KindWeekly, standup.TypeName())
	assert.Equal(t, calendar.DaysOfWeekFromInts([]int{1, 3, 5}), standup.DaysOfWeek())
	assert.Equal(t, recurrence.NewTimeOfDay(9, 30), *standup.TimeOfDay())
	assert.Equal(t, "America/Chicago", standup.TimeZone)
	assert.Empty(t, standup.TimeZoneName)

	launch := actions[1].Recurrence
	assert.True(t, launch.IsOnce())
	assert.Equal(t, calendar.June, launch.Month())
	assert.Equal(t, calendar.NewDayOfMonth(15), launch.DayOfMonth())
	assert.Equal(t, recurrence.NewTimeOfDay(16, 0), *launch.TimeOfDay())

	review := actions[2].Recurrence
	assert.Equal(t, recurrence.KindMonthlyByNthDayOfWeek, review.TypeName())
	assert.Equal(t, calendar.NewBoundedInt(3), review.NthDayOfWeek())
	assert.Equal(t, calendar.Wednesday, review.DayOfWeek())
	assert.Equal(t, recurrence.NewTimeOfDay(14, 0), *review.TimeOfDay())
	assert.Equal(t, "America/New_York", review.TimeZone)
	assert.Equal(t, "Eastern Time", review.TimeZoneName)

	_, errs = ToScheduledActions(events[2:], ImportDefaults{TimeZone: "Not/AZone"})
	assert.Len(t, errs, 1)
}

func weeklyAction() schedule.ScheduledAction {
	tod := recurrence.NewTimeOfDay(9, 30)
	return schedule.ScheduledAction{
		ID:           "sa-1",
		ScheduleType: schedule.TypeMessage,
		Trigger:      "standup time",
		Arguments:    []schedule.Argument{},
		Channel:      "C1",
		Recurrence: recurrence.Recurrence{
			Frequency: 1,
			TimeZone:  "America/Chicago",
			Rule: recurrence.Weekly{
				TimeOfDay:  &tod,
				DaysOfWeek: calendar.DaysOfWeekFromInts([]int{1, 5}),
			},
		},
	}
}

func TestExportRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	invalid := schedule.ScheduledAction{ID: "broken", ScheduleType: schedule.TypeMessage}
	channels := []schedule.ScheduleChannel{{ID: "C1", Name: "general"}}

	var buf bytes.Buffer
	require.NoError(t, WriteCalendar(&buf, []schedule.ScheduledAction{weeklyAction(), invalid}, channels, now))
	out := buf.String()
	assert.Contains(t, out, "UID:sa-1@skillsched")
	assert.Contains(t, out, "DTSTART;TZID=America/Chicago:20240301T093000")
	assert.NotContains(t, out, "broken")

	events, err := ParseICS(Source{ID: "export"}, buf.Bytes())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, strings.HasSuffix(events[0].Description, " in the channel #general"), events[0].Description)
	actions, errs := ToScheduledActions(events, ImportDefaults{TimeZone: "UTC", Channel: "C1"})
	require.Empty(t, errs)
	require.Len(t, actions, 1)
	assert.True(t, weeklyAction().Recurrence.Equal(actions[0].Recurrence), "got %+v", actions[0].Recurrence)
}

func TestExportUTCStart(t *testing.T) {
	a := weeklyAction()
	a.Recurrence.TimeZone = "UTC"
	cal := Export([]schedule.ScheduledAction{a}, nil, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	out := cal.Serialize()
	assert.Contains(t, out, "DTSTART:20240304T093000Z")

	events, err := ParseICS(Source{ID: "export"}, []byte(out))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, strings.HasSuffix(events[0].Description, " in channel C1"), events[0].Description)
}

func TestFetcher(t *testing.T) {
	var hits atomic.Int32
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if fail.Load() {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	src := Source{ID: "team", URL: srv.URL + "/private/feed.ics?token=secret"}

	res, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, feed, string(res.Body))

	res, err = f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, feed, string(res.Body))

	fail.Store(true)
	res, err = f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, int32(3), hits.Load())

	_, err = NewFetcher(t.TempDir(), srv.Client()).Fetch(context.Background(), src)
	assert.Error(t, err)

	_, err = f.Fetch(context.Background(), Source{})
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/a/b.ics?token=x"))
	assert.True(t, strings.HasPrefix(redactURL("not a url"), "ics://"))
}
