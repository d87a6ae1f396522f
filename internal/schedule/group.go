package schedule

import (
	"slices"
	"time"
)

// UnknownChannelName groups actions whose channel is not in the list.
const UnknownChannelName = "[unknown]"

// Behavior is one action of a skill.
type Behavior struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BehaviorGroup is a skill and the behaviors it contains.
type BehaviorGroup struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Behaviors []Behavior `json:"behaviors"`
}

// Trigger is message text known to start the listed behaviors.
type Trigger struct {
	Text        string   `json:"text"`
	BehaviorIDs []string `json:"behaviorIds"`
}

func findGroup(groups []BehaviorGroup, id string) (BehaviorGroup, bool) {
	i := slices.IndexFunc(groups, func(g BehaviorGroup) bool { return g.ID == id })
	if i < 0 {
		return BehaviorGroup{}, false
	}
	return groups[i], true
}

// SkillName is the name of the action's behavior group, or "".
func (a ScheduledAction) SkillName(groups []BehaviorGroup) string {
	if a.BehaviorGroupID == "" {
		return ""
	}
	g, _ := findGroup(groups, a.BehaviorGroupID)
	return g.Name
}

// ActionName is the name of the scheduled behavior, or "".
func (a ScheduledAction) ActionName(groups []BehaviorGroup) string {
	if a.BehaviorGroupID == "" || a.BehaviorID == "" {
		return ""
	}
	g, ok := findGroup(groups, a.BehaviorGroupID)
	if !ok {
		return ""
	}
	for _, b := range g.Behaviors {
		if b.ID == a.BehaviorID {
			return b.Name
		}
	}
	return ""
}

// TriggersBehaviorGroup reports whether running the action ends up in the
// given skill: directly for behaviors, through matching triggers for
// messages.
func (a ScheduledAction) TriggersBehaviorGroup(groupID string, groups []BehaviorGroup, triggers []Trigger) bool {
	if a.BehaviorGroupID != "" {
		return a.BehaviorGroupID == groupID
	}
	g, ok := findGroup(groups, groupID)
	if !ok {
		return false
	}
	for _, t := range triggers {
		if t.Text != a.Trigger {
			continue
		}
		for _, id := range t.BehaviorIDs {
			if slices.ContainsFunc(g.Behaviors, func(b Behavior) bool { return b.ID == id }) {
				return true
			}
		}
	}
	return false
}

// Filter narrows GroupByChannel. Empty fields do not filter.
type Filter struct {
	ChannelID       string
	BehaviorGroupID string
	BehaviorGroups  []BehaviorGroup
	Triggers        []Trigger
}

// Group is the set of scheduled actions posting to one channel.
type Group struct {
	Channel     *ScheduleChannel  `json:"channel"`
	ChannelName string            `json:"channelName"`
	ChannelID   string            `json:"channelId"`
	ExcludesBot bool              `json:"excludesBot"`
	IsArchived  bool              `json:"isArchived"`
	IsMissing   bool              `json:"isMissing"`
	IsReadOnly  bool              `json:"isReadOnly"`
	Actions     []ScheduledAction `json:"actions"`
}

func newGroup(channel *ScheduleChannel) *Group {
	g := &Group{ChannelID: "unknown", IsMissing: channel == nil, Actions: []ScheduledAction{}}
	if channel != nil {
		g.Channel = channel
		g.ChannelName = channel.FormattedName()
		g.ChannelID = channel.ID
		g.ExcludesBot = !channel.IsDM() && !channel.IsBotMember
		g.IsArchived = channel.IsArchived
		g.IsReadOnly = channel.IsReadOnly
	}
	return g
}

func lookupChannel(channels []ScheduleChannel, id string) *ScheduleChannel {
	c, ok := FindChannel(channels, id)
	if !ok {
		return nil
	}
	return &c
}

func groupName(c *ScheduleChannel) string {
	if c == nil || c.FormattedName() == "" {
		return UnknownChannelName
	}
	return c.FormattedName()
}

// GroupByChannel groups actions by formatted channel name. Actions within a
// group, and groups by their first action, are ordered by next run time
// with unscheduled actions last. A channel filter with no matching actions
// still yields an empty group for that channel.
func GroupByChannel(actions []ScheduledAction, channels []ScheduleChannel, f Filter) []Group {
	byName := make(map[string]*Group)
	var order []string

	add := func(c *ScheduleChannel) *Group {
		name := groupName(c)
		g, ok := byName[name]
		if !ok {
			g = newGroup(c)
			byName[name] = g
			order = append(order, name)
		}
		return g
	}

	for _, a := range actions {
		if f.BehaviorGroupID != "" && !a.TriggersBehaviorGroup(f.BehaviorGroupID, f.BehaviorGroups, f.Triggers) {
			continue
		}
		g := add(lookupChannel(channels, a.Channel))
		g.Actions = append(g.Actions, a)
	}

	if f.ChannelID != "" && !slices.ContainsFunc(actions, func(a ScheduledAction) bool { return a.Channel == f.ChannelID }) {
		add(lookupChannel(channels, f.ChannelID))
	}

	out := make([]Group, 0, len(order))
	for _, name := range order {
		g := byName[name]
		slices.SortStableFunc(g.Actions, func(x, y ScheduledAction) int {
			return compareRunTimes(x.FirstRecurrence, y.FirstRecurrence)
		})
		out = append(out, *g)
	}
	slices.SortStableFunc(out, func(x, y Group) int {
		return compareRunTimes(firstRun(x), firstRun(y))
	})
	return out
}

func firstRun(g Group) *time.Time {
	if len(g.Actions) == 0 {
		return nil
	}
	return g.Actions[0].FirstRecurrence
}

// compareRunTimes orders nil after every time.
func compareRunTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return a.Compare(*b)
	}
}
