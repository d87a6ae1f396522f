package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"skillsched/internal/ics"
	appLog "skillsched/internal/log"
	"skillsched/internal/schedule"
	"skillsched/internal/store"
)

var exportICSCmd = &cobra.Command{
	Use:   "export-ics <out>",
	Short: "Write every stored scheduled action to an iCalendar file",
	Long:  `Writes one VEVENT per valid scheduled action. "-" writes to standard output.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runExportICS,
}

type importFlags struct {
	channel string
	dryRun  bool
}

var importOpts importFlags

var importICSCmd = &cobra.Command{
	Use:   "import-ics <file|url|feed-id>",
	Short: "Create scheduled actions from the events of an iCalendar feed",
	Long: `Reads a local .ics file, downloads a URL, or fetches a feed listed under
"ics" in the config by its id. Each event becomes a message action posting
its summary. Events without RRULE run once.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportICS,
}

func init() {
	importICSCmd.Flags().StringVar(&importOpts.channel, "channel", "", "Channel id for the imported actions")
	importICSCmd.Flags().BoolVar(&importOpts.dryRun, "dry-run", false, "Print the actions as JSON instead of saving them")
}

func runExportICS(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(conf.StorePath)
	if err != nil {
		return err
	}

	actions := st.List()
	if args[0] == "-" {
		return ics.WriteCalendar(cmd.OutOrStdout(), actions, conf.ScheduleChannels(), time.Now())
	}

	f, err := os.OpenFile(args[0], os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := ics.WriteCalendar(f, actions, conf.ScheduleChannels(), time.Now()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	appLog.Info("calendar exported", "path", args[0], "actions", len(actions))
	return nil
}

func runImportICS(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}

	target := args[0]
	src := ics.Source{ID: target}
	channel := importOpts.channel
	for _, feed := range conf.ICS {
		if feed.ID == target {
			src = ics.Source{ID: feed.ID, URL: feed.URL}
			if channel == "" {
				channel = feed.Channel
			}
		}
	}
	if src.URL == "" && (strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")) {
		src.URL = target
	}
	if channel == "" {
		return errors.New("no channel: pass --channel or set it on the feed")
	}

	var body []byte
	if src.URL != "" {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		res, err := ics.NewFetcher(conf.ICSCacheDir, nil).Fetch(ctx, src)
		if err != nil {
			return err
		}
		body = res.Body
	} else {
		body, err = os.ReadFile(target)
		if err != nil {
			return err
		}
	}

	events, err := ics.ParseICS(src, body)
	if err != nil {
		return err
	}
	actions, errs := ics.ToScheduledActions(events, ics.ImportDefaults{
		TimeZone:     conf.Timezone,
		TimeZoneName: conf.TimezoneName,
		Channel:      channel,
	})
	for _, e := range errs {
		appLog.Error("event skipped", e, "source", src.ID)
	}

	out := cmd.OutOrStdout()
	if importOpts.dryRun {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(actions)
	}

	st, err := store.Open(conf.StorePath)
	if err != nil {
		return err
	}
	saved := 0
	for _, a := range actions {
		put, err := st.Put(a)
		if err != nil {
			appLog.Error("import failed", err, "trigger", a.Trigger)
			continue
		}
		saved++
		fmt.Fprintf(out, "%s  %s: %s\n", put.ID, summaryOf(put), put.Recurrence.Describe())
	}
	appLog.Info("ics import finished", "source", src.ID, "events", len(events), "saved", saved, "skipped", len(errs))
	return nil
}

func summaryOf(a schedule.ScheduledAction) string {
	s := []rune(a.Summary())
	if len(s) > 40 {
		return string(s[:37]) + "..."
	}
	return string(s)
}
