package schedule

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillsched/internal/calendar"
	"skillsched/internal/recurrence"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func dailyAt(hour, minute int) recurrence.Recurrence {
	tod := recurrence.NewTimeOfDay(hour, minute)
	return recurrence.Recurrence{
		Frequency: 1,
		TimeZone:  "UTC",
		Rule:      recurrence.Daily{TimeOfDay: &tod},
	}
}

func message(id, channel, text string) ScheduledAction {
	return ScheduledAction{
		ID:           id,
		ScheduleType: TypeMessage,
		Trigger:      text,
		Arguments:    []Argument{},
		Recurrence:   dailyAt(9, 0),
		Channel:      channel,
	}
}

func TestNewWithDefaults(t *testing.T) {
	a := NewWithDefaults("America/New_York", "Eastern Time")
	assert.True(t, a.IsNew())
	assert.Equal(t, TypeMessage, a.ScheduleType)
	assert.Equal(t, recurrence.KindDaily, a.Recurrence.TypeName())
	assert.Equal(t, "America/New_York", a.Recurrence.TimeZone)
	assert.Equal(t, "Eastern Time", a.Recurrence.TimeZoneName)
	assert.Equal(t, recurrence.DefaultTimeOfDay(), *a.Recurrence.TimeOfDay())
	assert.NotNil(t, a.Arguments)
	assert.False(t, a.UseDM)

	assert.True(t, a.HasValidRecurrence())
	assert.False(t, a.IsValidForScheduleType())
	assert.False(t, a.HasValidChannel())
	assert.False(t, a.IsValid())
}

func TestIsValidForScheduleType(t *testing.T) {
	tests := []struct {
		name string
		a    ScheduledAction
		want bool
	}{
		{"message with text", ScheduledAction{ScheduleType: TypeMessage, Trigger: "run report"}, true},
		{"empty message", ScheduledAction{ScheduleType: TypeMessage}, false},
		{"behavior", ScheduledAction{ScheduleType: TypeBehavior, BehaviorID: "b1", BehaviorGroupID: "g1"}, true},
		{"behavior without group", ScheduledAction{ScheduleType: TypeBehavior, BehaviorID: "b1"}, false},
		{"behavior with trigger only", ScheduledAction{ScheduleType: TypeBehavior, Trigger: "hi"}, false},
		{"unknown type", ScheduledAction{ScheduleType: "reminder", Trigger: "hi"}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.a.IsValidForScheduleType(), tt.name)
	}
}

func TestIsValid(t *testing.T) {
	a := message("", "C1", "hello")
	assert.True(t, a.IsValid())

	v := a.Clone(Patch{Channel: recurrence.Ref("")}).Validity()
	assert.False(t, v.Valid)
	assert.False(t, v.Channel)
	assert.True(t, v.ScheduleType)
	assert.True(t, v.Recurrence.Valid)

	broken := a.Recurrence.Clone(recurrence.Patch{Frequency: recurrence.Ref(0)})
	assert.False(t, a.Clone(Patch{Recurrence: &broken}).IsValid())
}

func TestCloneDoesNotShareArguments(t *testing.T) {
	a := message("a1", "C1", "hello").WithNewArgument()
	b := a.Clone(Patch{})
	b.Arguments[0].Name = "changed"
	assert.Empty(t, a.Arguments[0].Name)
	assert.True(t, a.Clone(Patch{}).IsIdenticalTo(a))
}

func TestArgumentEditing(t *testing.T) {
	a := message("a1", "C1", "hello").WithNewArgument().WithNewArgument()
	require.Len(t, a.Arguments, 2)

	a = a.WithArgument(1, Argument{Name: "city", Value: "Toronto"})
	assert.Equal(t, []Argument{{}, {Name: "city", Value: "Toronto"}}, a.Arguments)

	a = a.WithoutArgument(0)
	assert.Equal(t, []Argument{{Name: "city", Value: "Toronto"}}, a.Arguments)

	same := a.WithArgument(5, Argument{Name: "x"}).WithoutArgument(-1)
	assert.True(t, same.IsIdenticalTo(a))
}

func TestIsIdenticalTo(t *testing.T) {
	a := message("a1", "C1", "hello")
	named := a.Recurrence.Clone(recurrence.Patch{
		DisplayString: recurrence.Ref("Every day at 9:00 AM"),
		TimeZoneName:  recurrence.Ref("Coordinated Universal Time"),
	})
	b := a.Clone(Patch{Recurrence: &named})
	assert.True(t, a.IsIdenticalTo(b), cmp.Diff(a.ForEqualityComparison(), b.ForEqualityComparison()))

	assert.False(t, a.IsIdenticalTo(a.Clone(Patch{UseDM: recurrence.Ref(true)})))
	assert.False(t, a.IsIdenticalTo(a.Clone(Patch{Trigger: recurrence.Ref("bye")})))

	first := at("2024-03-02T09:00:00Z")
	firstPtr := &first
	assert.False(t, a.IsIdenticalTo(a.Clone(Patch{FirstRecurrence: &firstPtr})))
}

func TestWithComputedRecurrences(t *testing.T) {
	a := message("a1", "C1", "hello").WithComputedRecurrences(at("2024-03-01T12:00:00Z"))
	require.NotNil(t, a.FirstRecurrence)
	require.NotNil(t, a.SecondRecurrence)
	assert.True(t, a.FirstRecurrence.Equal(at("2024-03-02T09:00:00Z")))
	assert.True(t, a.SecondRecurrence.Equal(at("2024-03-03T09:00:00Z")))

	once := a.Recurrence.Clone(recurrence.Patch{TotalTimesToRun: recurrence.Ref(calendar.NewBoundedInt(1))})
	b := a.Clone(Patch{Recurrence: &once}).WithComputedRecurrences(at("2024-03-01T12:00:00Z"))
	assert.NotNil(t, b.FirstRecurrence)
	assert.Nil(t, b.SecondRecurrence)

	invalid := a.Recurrence.Clone(recurrence.Patch{TimeZone: recurrence.Ref("")})
	c := a.Clone(Patch{Recurrence: &invalid}).WithComputedRecurrences(at("2024-03-01T12:00:00Z"))
	assert.Nil(t, c.FirstRecurrence)
	assert.Nil(t, c.SecondRecurrence)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "hello", message("", "C1", "hello").Summary())
	b := ScheduledAction{ScheduleType: TypeBehavior, BehaviorID: "b1"}
	assert.Equal(t, "Run action b1", b.Summary())
}
