package schedule

import "strings"

// ScheduleChannel is a chat channel a scheduled action can post to.
type ScheduleChannel struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Context            string `json:"context"`
	IsBotMember        bool   `json:"isBotMember"`
	IsSelfDM           bool   `json:"isSelfDm"`
	IsOtherDM          bool   `json:"isOtherDm"`
	IsPrivateChannel   bool   `json:"isPrivateChannel"`
	IsPrivateGroup     bool   `json:"isPrivateGroup"`
	IsArchived         bool   `json:"isArchived"`
	IsOrgShared        bool   `json:"isOrgShared"`
	IsExternallyShared bool   `json:"isExternallyShared"`
	IsReadOnly         bool   `json:"isReadOnly"`
}

func (c ScheduleChannel) IsPublic() bool {
	return !(c.IsSelfDM || c.IsOtherDM || c.IsPrivateGroup || c.IsPrivateChannel)
}

func (c ScheduleChannel) IsDM() bool {
	return c.IsSelfDM || c.IsOtherDM
}

// Prefix is "#" for public channels and a lock for everything else.
func (c ScheduleChannel) Prefix() string {
	if c.IsPublic() {
		return "#"
	}
	return "🔒 "
}

// DisplayName is the channel name without prefix; direct messages get a
// description since they have no name of their own.
func (c ScheduleChannel) DisplayName() string {
	switch {
	case c.IsSelfDM:
		return "Direct message to you"
	case c.IsOtherDM:
		return "Direct message to someone else"
	default:
		return c.Name
	}
}

func (c ScheduleChannel) FormattedName() string {
	return strings.TrimSpace(c.Prefix() + c.DisplayName())
}

// Description completes sentences like "Runs in ...".
func (c ScheduleChannel) Description() string {
	switch {
	case c.IsSelfDM:
		return "a direct message to you"
	case c.IsOtherDM:
		return "a direct message to someone else"
	case c.IsPrivateGroup:
		return "the private group " + c.FormattedName()
	default:
		return "the channel " + c.FormattedName()
	}
}

// FindChannel returns the channel with the given id.
func FindChannel(channels []ScheduleChannel, id string) (ScheduleChannel, bool) {
	for _, c := range channels {
		if c.ID == id {
			return c, true
		}
	}
	return ScheduleChannel{}, false
}
