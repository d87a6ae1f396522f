package schedule

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"skillsched/internal/recurrence"
)

type wireAction struct {
	ID               *string               `json:"id"`
	ScheduleType     ScheduleType          `json:"scheduleType"`
	BehaviorID       *string               `json:"behaviorId"`
	BehaviorGroupID  *string               `json:"behaviorGroupId"`
	Trigger          *string               `json:"trigger"`
	Arguments        []Argument            `json:"arguments"`
	Recurrence       recurrence.Recurrence `json:"recurrence"`
	FirstRecurrence  json.RawMessage       `json:"firstRecurrence"`
	SecondRecurrence json.RawMessage       `json:"secondRecurrence"`
	UseDM            bool                  `json:"useDM"`
	Channel          string                `json:"channel"`
	UserID           *string               `json:"userId"`
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (a ScheduledAction) MarshalJSON() ([]byte, error) {
	first, err := encodeTimestamp(a.FirstRecurrence)
	if err != nil {
		return nil, err
	}
	second, err := encodeTimestamp(a.SecondRecurrence)
	if err != nil {
		return nil, err
	}
	args := a.Arguments
	if args == nil {
		args = []Argument{}
	}
	return json.Marshal(wireAction{
		ID:               optionalString(a.ID),
		ScheduleType:     a.ScheduleType,
		BehaviorID:       optionalString(a.BehaviorID),
		BehaviorGroupID:  optionalString(a.BehaviorGroupID),
		Trigger:          optionalString(a.Trigger),
		Arguments:        args,
		Recurrence:       a.Recurrence,
		FirstRecurrence:  first,
		SecondRecurrence: second,
		UseDM:            a.UseDM,
		Channel:          a.Channel,
		UserID:           optionalString(a.UserID),
	})
}

func (a *ScheduledAction) UnmarshalJSON(data []byte) error {
	w := wireAction{Recurrence: recurrence.New()}
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("schedule: decode: %w", err)
	}
	first, err := decodeTimestamp(w.FirstRecurrence)
	if err != nil {
		return fmt.Errorf("schedule: decode firstRecurrence: %w", err)
	}
	second, err := decodeTimestamp(w.SecondRecurrence)
	if err != nil {
		return fmt.Errorf("schedule: decode secondRecurrence: %w", err)
	}
	args := w.Arguments
	if args == nil {
		args = []Argument{}
	}
	*a = ScheduledAction{
		ID:               deref(w.ID),
		ScheduleType:     w.ScheduleType,
		BehaviorID:       deref(w.BehaviorID),
		BehaviorGroupID:  deref(w.BehaviorGroupID),
		Trigger:          deref(w.Trigger),
		Arguments:        args,
		Recurrence:       w.Recurrence,
		FirstRecurrence:  first,
		SecondRecurrence: second,
		UseDM:            w.UseDM,
		Channel:          w.Channel,
		UserID:           deref(w.UserID),
	}
	return nil
}

// FromJSON decodes a scheduled action as sent by the backend.
func FromJSON(data []byte) (ScheduledAction, error) {
	var a ScheduledAction
	err := json.Unmarshal(data, &a)
	return a, err
}

// decodeTimestamp accepts an RFC 3339 string, epoch milliseconds or null.
func decodeTimestamp(raw json.RawMessage) (*time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if s == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return nil, err
	}
	t := time.UnixMilli(int64(ms)).UTC()
	return &t, nil
}

func encodeTimestamp(t *time.Time) (json.RawMessage, error) {
	if t == nil {
		return json.RawMessage("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}
