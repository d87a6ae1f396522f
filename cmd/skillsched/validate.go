package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"skillsched/internal/schedule"
)

var nextCount int

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check scheduled actions in a JSON file",
	Long: `Reads a single scheduled action, an array of them or a store file and
reports which actions cannot be saved. "-" reads standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var nextCmd = &cobra.Command{
	Use:   "next <file>",
	Short: "Print the upcoming runs of scheduled actions in a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runNext,
}

func init() {
	nextCmd.Flags().IntVarP(&nextCount, "count", "n", 5, "Number of runs to print per action")
}

// readActions accepts one action, an array of actions or a store file.
func readActions(path string) ([]schedule.ScheduledAction, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("input is empty")
	}

	var raws []json.RawMessage
	switch {
	case data[0] == '[':
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	default:
		var file struct {
			ScheduledActions []json.RawMessage `json:"scheduledActions"`
		}
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		raws = file.ScheduledActions
		if raws == nil {
			raws = []json.RawMessage{data}
		}
	}

	actions := make([]schedule.ScheduledAction, 0, len(raws))
	for i, raw := range raws {
		a, err := schedule.FromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: action %d: %w", path, i, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func label(i int, a schedule.ScheduledAction) string {
	if a.ID != "" {
		return a.ID
	}
	return fmt.Sprintf("#%d", i)
}

func runValidate(cmd *cobra.Command, args []string) error {
	actions, err := readActions(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	invalid := 0
	for i, a := range actions {
		v := a.Validity()
		if v.Valid {
			fmt.Fprintf(out, "ok       %s: %s\n", label(i, a), a.Recurrence.Describe())
			continue
		}
		invalid++
		var reasons []string
		if !v.ScheduleType {
			reasons = append(reasons, "missing "+missingTarget(a))
		}
		if !v.Channel {
			reasons = append(reasons, "missing channel")
		}
		if !v.Recurrence.Valid {
			reasons = append(reasons, recurrenceReasons(v)...)
		}
		fmt.Fprintf(out, "invalid  %s: %v\n", label(i, a), reasons)
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d scheduled actions are invalid", invalid, len(actions))
	}
	return nil
}

func missingTarget(a schedule.ScheduledAction) string {
	if a.ScheduleType == schedule.TypeBehavior {
		return "behavior"
	}
	return "trigger text"
}

func recurrenceReasons(v schedule.Validity) []string {
	r := v.Recurrence
	var out []string
	if !r.ValidFrequency {
		out = append(out, "frequency out of range")
	}
	if !r.ValidTimeZone {
		out = append(out, "time zone")
	}
	if !r.ValidTimeOfDay {
		out = append(out, "time of day")
	}
	if !r.ValidKindFields {
		out = append(out, string(r.TypeName)+" fields")
	}
	if len(out) == 0 {
		out = append(out, "recurrence")
	}
	return out
}

func runNext(cmd *cobra.Command, args []string) error {
	if nextCount <= 0 {
		return errors.New("--count must be positive")
	}
	actions, err := readActions(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	now := time.Now()
	for i, a := range actions {
		fmt.Fprintf(out, "%s: %s\n", label(i, a), a.Recurrence.Describe())
		if !a.IsValid() {
			fmt.Fprintln(out, "  (invalid, never runs)")
			continue
		}
		times, err := a.Recurrence.NextOccurrences(now, nextCount)
		if err != nil {
			return fmt.Errorf("%s: %w", label(i, a), err)
		}
		if len(times) == 0 {
			fmt.Fprintln(out, "  (no runs remaining)")
		}
		for _, t := range times {
			fmt.Fprintf(out, "  %s\n", t.Format("Mon 2006-01-02 15:04 MST"))
		}
	}
	return nil
}
