package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillsched/internal/config"
	"skillsched/internal/store"
)

const dailyRecurrence = `{"frequency":1,"timesHasRun":0,"typeName":"daily",
	"timeOfDay":{"hour":9,"minute":0},"timeZone":"UTC","daysOfWeek":[]}`

func newAction(trigger, channel string) string {
	return `{"scheduleType":"message","trigger":"` + trigger + `","arguments":[],
		"recurrence":` + dailyRecurrence + `,"useDM":false,"channel":"` + channel + `"}`
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
}

func newTestServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, *store.Store) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Channels = []config.ChannelConfig{{ID: "C1", Name: "general"}}
	if mutate != nil {
		mutate(cfg)
	}
	st, err := store.Open(filepath.Join(t.TempDir(), "actions.json"))
	require.NoError(t, err)
	srv := httptest.NewServer(NewServer(cfg, st, Options{Now: fixedNow}).Handler())
	t.Cleanup(srv.Close)
	return srv, st
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, body := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestActionLifecycle(t *testing.T) {
	srv, st := newTestServer(t, nil)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/scheduled-actions", newAction("good morning", "C1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created struct {
		Action struct {
			ID              string `json:"id"`
			Trigger         string `json:"trigger"`
			FirstRecurrence string `json:"firstRecurrence"`
		} `json:"action"`
		Description string `json:"description"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotEmpty(t, created.Action.ID)
	assert.Equal(t, "good morning", created.Action.Trigger)
	assert.Equal(t, "2024-03-01T09:00:00Z", created.Action.FirstRecurrence)
	assert.Equal(t, "Every day at 9:00 AM (UTC) in the channel #general", created.Description)
	require.Len(t, st.List(), 1)

	id := created.Action.ID
	resp, _ = do(t, http.MethodGet, srv.URL+"/api/scheduled-actions/"+id, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	update := strings.Replace(newAction("good night", "C1"), `{`, `{"id":"`+id+`",`, 1)
	resp, body = do(t, http.MethodPost, srv.URL+"/api/scheduled-actions", update)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "good night", st.List()[0].Trigger)

	resp, _ = do(t, http.MethodDelete, srv.URL+"/api/scheduled-actions/"+id, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, http.MethodDelete, srv.URL+"/api/scheduled-actions/"+id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, http.MethodGet, srv.URL+"/api/scheduled-actions/"+id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSaveRejectsInvalid(t *testing.T) {
	srv, st := newTestServer(t, nil)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/scheduled-actions", newAction("", "C1"))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var invalid struct {
		Validity struct {
			Valid             bool `json:"valid"`
			ValidScheduleType bool `json:"validScheduleType"`
			ValidChannel      bool `json:"validChannel"`
		} `json:"validity"`
	}
	require.NoError(t, json.Unmarshal(body, &invalid))
	assert.False(t, invalid.Validity.Valid)
	assert.False(t, invalid.Validity.ValidScheduleType)
	assert.True(t, invalid.Validity.ValidChannel)

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/scheduled-actions", `{"scheduleType":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	unknown := strings.Replace(newAction("hi", "C1"), `{`, `{"id":"missing",`, 1)
	resp, _ = do(t, http.MethodPost, srv.URL+"/api/scheduled-actions", unknown)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, st.List())
}

type groupList struct {
	Groups []struct {
		ChannelID   string            `json:"channelId"`
		ChannelName string            `json:"channelName"`
		IsMissing   bool              `json:"isMissing"`
		Actions     []json.RawMessage `json:"actions"`
	} `json:"groups"`
}

func listGroups(t *testing.T, url string) groupList {
	t.Helper()
	resp, body := do(t, http.MethodGet, url, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got groupList
	require.NoError(t, json.Unmarshal(body, &got))
	return got
}

func TestListGroupsByChannel(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	for _, body := range []string{newAction("one", "C1"), newAction("two", "C9"), newAction("three", "C1")} {
		resp, _ := do(t, http.MethodPost, srv.URL+"/api/scheduled-actions", body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	got := listGroups(t, srv.URL+"/api/scheduled-actions")
	require.Len(t, got.Groups, 2)
	counts := map[string]int{}
	names := map[string]string{}
	for _, g := range got.Groups {
		counts[g.ChannelID] = len(g.Actions)
		names[g.ChannelID] = g.ChannelName
	}
	assert.Equal(t, map[string]int{"C1": 2, "unknown": 1}, counts)
	assert.Equal(t, "#general", names["C1"])
	assert.Empty(t, names["unknown"], "missing channels have no name")

	got = listGroups(t, srv.URL+"/api/scheduled-actions?channel=C9")
	require.Len(t, got.Groups, 1)
	assert.True(t, got.Groups[0].IsMissing)
	assert.Len(t, got.Groups[0].Actions, 1)

	got = listGroups(t, srv.URL+"/api/scheduled-actions?channel=C1")
	require.Len(t, got.Groups, 1)
	assert.Equal(t, "C1", got.Groups[0].ChannelID)
	assert.Len(t, got.Groups[0].Actions, 2)
}

func TestListEmptyChannelGroup(t *testing.T) {
	srv, _ := newTestServer(t, func(c *config.Config) {
		c.Channels = append(c.Channels, config.ChannelConfig{ID: "C2", Name: "random"})
	})
	resp, _ := do(t, http.MethodPost, srv.URL+"/api/scheduled-actions", newAction("one", "C1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	got := listGroups(t, srv.URL+"/api/scheduled-actions?channel=C2")
	require.Len(t, got.Groups, 1)
	assert.Equal(t, "C2", got.Groups[0].ChannelID)
	assert.Equal(t, "#random", got.Groups[0].ChannelName)
	assert.Empty(t, got.Groups[0].Actions)
}

func TestListFiltersBySkill(t *testing.T) {
	srv, _ := newTestServer(t, func(c *config.Config) {
		c.Skills = []config.SkillConfig{
			{ID: "standup", Name: "Standup", Behaviors: []config.BehaviorConfig{{ID: "b1", Triggers: []string{"standup"}}}},
			{ID: "deploy", Name: "Deploy", Behaviors: []config.BehaviorConfig{{ID: "b2", Triggers: []string{"ship it"}}}},
		}
	})
	behavior := `{"scheduleType":"behavior","behaviorGroupId":"standup","behaviorId":"b1","arguments":[],
		"recurrence":` + dailyRecurrence + `,"useDM":false,"channel":"C1"}`
	for _, body := range []string{newAction("standup", "C1"), newAction("ship it", "C1"), behavior} {
		resp, _ := do(t, http.MethodPost, srv.URL+"/api/scheduled-actions", body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	got := listGroups(t, srv.URL+"/api/scheduled-actions?behaviorGroupId=standup")
	require.Len(t, got.Groups, 1)
	assert.Len(t, got.Groups[0].Actions, 2, "message whose trigger starts the skill is kept")

	got = listGroups(t, srv.URL+"/api/scheduled-actions?behaviorGroupId=deploy")
	require.Len(t, got.Groups, 1)
	assert.Len(t, got.Groups[0].Actions, 1)
}

func TestValidateRecurrence(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/recurrences/validate",
		`{"recurrence":`+dailyRecurrence+`,"count":3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var got validateResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.Validity.Valid)
	assert.Equal(t, "Every day at 9:00 AM (UTC)", got.Description)
	assert.Equal(t, "CRON_TZ=UTC 0 9 * * *", got.CronSpec)
	require.Len(t, got.NextOccurrences, 3)
	assert.True(t, got.NextOccurrences[0].Equal(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)))
	assert.True(t, got.NextOccurrences[2].Equal(time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC)))

	resp, body = do(t, http.MethodPost, srv.URL+"/api/recurrences/validate",
		`{"recurrence":{"typeName":"weekly","frequency":1,"timesHasRun":0,"timeZone":"UTC","daysOfWeek":[]}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = validateResponse{}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.False(t, got.Validity.Valid)
	assert.Empty(t, got.NextOccurrences)
	assert.Empty(t, got.CronSpec)

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/recurrences/validate", `{"count":3}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, srv.URL+"/api/recurrences/validate", `{"recurrence":`+dailyRecurrence+`,"count":500}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, srv.URL+"/api/recurrences/validate", `{"recurrence":{"typeName":"fortnightly"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOccurrencesAndCalendar(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, _ := do(t, http.MethodPost, srv.URL+"/api/scheduled-actions", newAction("standup", "C1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/occurrences?days=3", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var occ occurrencesResponse
	require.NoError(t, json.Unmarshal(body, &occ))
	assert.Len(t, occ.Occurrences, 3)
	assert.Equal(t, "UTC", occ.DisplayTimeZone)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/calendar.ics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/calendar"))
	assert.Contains(t, string(body), "BEGIN:VCALENDAR")
	assert.Contains(t, string(body), "SUMMARY:standup")
	assert.Contains(t, string(body), "RRULE:FREQ=DAILY")
}

func TestBasicAuth(t *testing.T) {
	srv, _ := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	})

	resp, _ := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/scheduled-actions", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "skillsched")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/scheduled-actions", nil)
	require.NoError(t, err)
	req.SetBasicAuth("admin", "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t, func(c *config.Config) {
		c.CORSOrigins = []string{"https://editor.example"}
	})
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/scheduled-actions", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://editor.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "https://editor.example", resp.Header.Get("Access-Control-Allow-Origin"))
}
