package schedule

import (
	"errors"
	"time"

	appLog "skillsched/internal/log"
	"skillsched/internal/model"
)

const (
	defaultMaxOccurrencesPerAction = 5000
)

// ExpandConfig controls how scheduled actions are expanded into runs.
type ExpandConfig struct {
	// DisplayLocation is the time zone all occurrences are converted to.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerAction caps endless recurrences such as minutely
	// ones. If zero, defaultMaxOccurrencesPerAction is used.
	MaxOccurrencesPerAction int
}

// ExpandResult holds the expanded occurrences and the actions that hit the
// cap.
type ExpandResult struct {
	Occurrences      []model.Occurrence
	TruncatedActions []string
}

// Expand lists the runs of every valid action inside the configured
// window. Invalid actions are skipped. Intervals count from RangeStart.
func Expand(actions []ScheduledAction, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerAction <= 0 {
		cfg.MaxOccurrencesPerAction = defaultMaxOccurrencesPerAction
	}

	result.Occurrences = make([]model.Occurrence, 0)
	for _, a := range actions {
		if !a.IsValid() {
			continue
		}
		occ, hitCap, err := expandAction(a, cfg)
		if err != nil {
			appLog.Error("expand: failed to build rule", err, "id", a.ID)
			continue
		}
		result.Occurrences = append(result.Occurrences, occ...)
		if hitCap {
			result.TruncatedActions = append(result.TruncatedActions, a.ID)
			appLog.Error("expand: truncated occurrences for action due to cap",
				errors.New("max occurrences reached"),
				"id", a.ID,
				"cap", cfg.MaxOccurrencesPerAction,
			)
		}
	}
	return result, nil
}

func expandAction(a ScheduledAction, cfg ExpandConfig) ([]model.Occurrence, bool, error) {
	// One extra occurrence tells us whether the cap cut the window short.
	times, err := a.Recurrence.OccurrencesBetween(cfg.RangeStart, cfg.RangeEnd, cfg.MaxOccurrencesPerAction+1)
	if err != nil {
		return nil, false, err
	}
	hitCap := len(times) > cfg.MaxOccurrencesPerAction
	if hitCap {
		times = times[:cfg.MaxOccurrencesPerAction]
	}
	out := make([]model.Occurrence, 0, len(times))
	for _, t := range times {
		out = append(out, makeOccurrence(a, t, cfg.DisplayLocation))
	}
	return out, hitCap, nil
}

func makeOccurrence(a ScheduledAction, start time.Time, displayLoc *time.Location) model.Occurrence {
	startLocal := start.In(displayLoc)
	return model.Occurrence{
		ActionID:    a.ID,
		InstanceKey: a.ID + "@" + startLocal.Format(time.RFC3339),
		Summary:     a.Summary(),
		Description: a.Recurrence.Describe(),
		Channel:     a.Channel,
		Start:       startLocal,
	}
}
