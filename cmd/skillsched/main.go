package main

import (
	"os"

	"github.com/spf13/cobra"

	"skillsched/internal/config"
	appLog "skillsched/internal/log"
)

var version = "0.1.0-dev"

// rootFlags hold the persistent flags shared by every command.
type rootFlags struct {
	configPath string
	envFile    string
	logLevel   string
}

var flags rootFlags

var rootCmd = &cobra.Command{
	Use:           "skillsched",
	Short:         "Schedule chat-bot messages and actions on recurring times",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if err := config.LoadEnvFile(flags.envFile); err != nil {
			return err
		}
		if flags.logLevel != "" {
			appLog.SetLevel(appLog.Level(flags.logLevel))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "/etc/skillsched/config.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file with SKILLSCHED_* overrides")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "DEBUG, INFO or ERROR (overrides config)")

	rootCmd.AddCommand(serveCmd, validateCmd, nextCmd, exportICSCmd, importICSCmd)
}

// loadConfig loads the config file and applies its logging settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	appLog.Configure(appLog.Level(level), appLog.Format(cfg.LogFormat))
	return cfg, nil
}

func main() {
	defer appLog.Sync()
	if err := rootCmd.Execute(); err != nil {
		appLog.Error("skillsched failed", err)
		appLog.Sync()
		os.Exit(1)
	}
}
