package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	appLog "skillsched/internal/log"
	"skillsched/internal/runner"
	"skillsched/internal/store"
	"skillsched/internal/web"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and fire scheduled actions when they come due",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides config if set)")
}

func runServe(_ *cobra.Command, _ []string) error {
	appLog.Info("skillsched starting", "version", version)

	conf, err := loadConfig()
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return err
	}
	if serveListen != "" {
		conf.Listen = serveListen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"store_path", conf.StorePath,
		"tick", conf.Tick,
		"channel_count", len(conf.Channels),
		"ics_count", len(conf.ICS),
	)

	st, err := store.Open(conf.StorePath)
	if err != nil {
		return err
	}

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		return err
	}
	run, err := runner.New(st, runner.LogDispatcher{}, runner.Options{Tick: conf.Tick, Location: loc})
	if err != nil {
		return err
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := run.Start(ctx); err != nil {
		return err
	}
	defer run.Stop()

	err = web.StartServer(ctx, conf, st, web.Options{NextRun: run.NextRun})
	cancel()
	appLog.Info("skillsched exiting")
	return err
}
