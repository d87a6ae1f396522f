// Package schedule holds scheduled actions: a chat message or a bot behavior
// that runs in a channel on a recurrence.
package schedule

import (
	"slices"
	"time"

	"skillsched/internal/recurrence"
)

// ScheduleType says what a scheduled action runs.
type ScheduleType string

const (
	TypeMessage  ScheduleType = "message"
	TypeBehavior ScheduleType = "behavior"
)

// Argument is a named input passed to a scheduled behavior.
type Argument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ScheduledAction is an immutable value; edits return copies.
type ScheduledAction struct {
	ID              string
	ScheduleType    ScheduleType
	BehaviorID      string
	BehaviorGroupID string
	Trigger         string
	Arguments       []Argument
	Recurrence      recurrence.Recurrence

	// FirstRecurrence and SecondRecurrence are the next two run times,
	// computed by the backend. Nil when unknown.
	FirstRecurrence  *time.Time
	SecondRecurrence *time.Time

	UseDM   bool
	Channel string
	UserID  string
}

// NewWithDefaults is the starting point of the "new schedule" editor: a
// message with no text, running daily in the team's time zone.
func NewWithDefaults(timeZone, timeZoneName string) ScheduledAction {
	r := recurrence.New().Clone(recurrence.Patch{
		TimeZone:     &timeZone,
		TimeZoneName: &timeZoneName,
	})
	return ScheduledAction{
		ScheduleType: TypeMessage,
		Arguments:    []Argument{},
		Recurrence:   r.BecomeDaily(recurrence.Defaults{}),
	}
}

// Patch lists the fields Clone overrides. Nil fields keep the current value.
type Patch struct {
	ID               *string
	ScheduleType     *ScheduleType
	BehaviorID       *string
	BehaviorGroupID  *string
	Trigger          *string
	Arguments        []Argument
	Recurrence       *recurrence.Recurrence
	FirstRecurrence  **time.Time
	SecondRecurrence **time.Time
	UseDM            *bool
	Channel          *string
	UserID           *string
}

// Clone returns a copy of a with the non-nil patch fields applied. The
// argument list is never shared with the receiver.
func (a ScheduledAction) Clone(p Patch) ScheduledAction {
	out := a
	if p.ID != nil {
		out.ID = *p.ID
	}
	if p.ScheduleType != nil {
		out.ScheduleType = *p.ScheduleType
	}
	if p.BehaviorID != nil {
		out.BehaviorID = *p.BehaviorID
	}
	if p.BehaviorGroupID != nil {
		out.BehaviorGroupID = *p.BehaviorGroupID
	}
	if p.Trigger != nil {
		out.Trigger = *p.Trigger
	}
	if p.Arguments != nil {
		out.Arguments = p.Arguments
	}
	if p.Recurrence != nil {
		out.Recurrence = *p.Recurrence
	}
	if p.FirstRecurrence != nil {
		out.FirstRecurrence = *p.FirstRecurrence
	}
	if p.SecondRecurrence != nil {
		out.SecondRecurrence = *p.SecondRecurrence
	}
	if p.UseDM != nil {
		out.UseDM = *p.UseDM
	}
	if p.Channel != nil {
		out.Channel = *p.Channel
	}
	if p.UserID != nil {
		out.UserID = *p.UserID
	}
	out.Arguments = slices.Clone(out.Arguments)
	out.Recurrence = out.Recurrence.Clone(recurrence.Patch{})
	return out
}

// IsNew reports whether the action has never been saved.
func (a ScheduledAction) IsNew() bool {
	return a.ID == ""
}

func (a ScheduledAction) ForEqualityComparison() ScheduledAction {
	rec := a.Recurrence.ForEqualityComparison()
	return a.Clone(Patch{Recurrence: &rec})
}

// IsIdenticalTo compares two actions ignoring recurrence display fields.
func (a ScheduledAction) IsIdenticalTo(other ScheduledAction) bool {
	x, y := a.ForEqualityComparison(), other.ForEqualityComparison()
	return x.ID == y.ID &&
		x.ScheduleType == y.ScheduleType &&
		x.BehaviorID == y.BehaviorID &&
		x.BehaviorGroupID == y.BehaviorGroupID &&
		x.Trigger == y.Trigger &&
		slices.Equal(x.Arguments, y.Arguments) &&
		x.Recurrence.Equal(y.Recurrence) &&
		timesEqual(x.FirstRecurrence, y.FirstRecurrence) &&
		timesEqual(x.SecondRecurrence, y.SecondRecurrence) &&
		x.UseDM == y.UseDM &&
		x.Channel == y.Channel &&
		x.UserID == y.UserID
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// IsValidForScheduleType: messages need text, behaviors need both ids.
func (a ScheduledAction) IsValidForScheduleType() bool {
	switch a.ScheduleType {
	case TypeMessage:
		return a.Trigger != ""
	case TypeBehavior:
		return a.BehaviorID != "" && a.BehaviorGroupID != ""
	default:
		return false
	}
}

func (a ScheduledAction) HasValidRecurrence() bool {
	return a.Recurrence.IsValid()
}

func (a ScheduledAction) HasValidChannel() bool {
	return a.Channel != ""
}

func (a ScheduledAction) IsValid() bool {
	return a.IsValidForScheduleType() && a.HasValidChannel() && a.HasValidRecurrence()
}

// Validity is the per-check breakdown reported by the API.
type Validity struct {
	Valid        bool                `json:"valid"`
	ScheduleType bool                `json:"validScheduleType"`
	Channel      bool                `json:"validChannel"`
	Recurrence   recurrence.Validity `json:"recurrence"`
}

func (a ScheduledAction) Validity() Validity {
	return Validity{
		Valid:        a.IsValid(),
		ScheduleType: a.IsValidForScheduleType(),
		Channel:      a.HasValidChannel(),
		Recurrence:   a.Recurrence.Validity(),
	}
}

// WithArgument replaces the argument at index i. Out-of-range indexes leave
// the action unchanged.
func (a ScheduledAction) WithArgument(i int, arg Argument) ScheduledAction {
	if i < 0 || i >= len(a.Arguments) {
		return a.Clone(Patch{})
	}
	args := slices.Clone(a.Arguments)
	args[i] = arg
	return a.Clone(Patch{Arguments: args})
}

func (a ScheduledAction) WithoutArgument(i int) ScheduledAction {
	if i < 0 || i >= len(a.Arguments) {
		return a.Clone(Patch{})
	}
	args := slices.Delete(slices.Clone(a.Arguments), i, i+1)
	return a.Clone(Patch{Arguments: args})
}

// WithNewArgument appends an empty name/value pair.
func (a ScheduledAction) WithNewArgument() ScheduledAction {
	args := append(slices.Clone(a.Arguments), Argument{})
	return a.Clone(Patch{Arguments: args})
}

// WithComputedRecurrences fills FirstRecurrence and SecondRecurrence with
// the next two occurrences after now. Invalid or exhausted recurrences
// clear both.
func (a ScheduledAction) WithComputedRecurrences(now time.Time) ScheduledAction {
	var first, second *time.Time
	if a.Recurrence.IsValid() {
		times, err := a.Recurrence.NextOccurrences(now, 2)
		if err == nil {
			if len(times) > 0 {
				first = &times[0]
			}
			if len(times) > 1 {
				second = &times[1]
			}
		}
	}
	return a.Clone(Patch{FirstRecurrence: &first, SecondRecurrence: &second})
}

// Summary is a one-line label for calendars and logs.
func (a ScheduledAction) Summary() string {
	if a.ScheduleType == TypeBehavior {
		return "Run action " + a.BehaviorID
	}
	return a.Trigger
}
