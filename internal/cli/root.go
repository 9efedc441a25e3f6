// Package cli implements the gork command line.
package cli

import (
	"fmt"
	"os"

	"github.com/soyeahso/gork/internal/config"
	"github.com/soyeahso/gork/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// set by PersistentPreRunE
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gork",
		Short: "gork relays Discord conversations to a language model",
		Long: "gork is a Discord bot that answers mentions, replies, threads and DMs\n" +
			"with a configurable persona, optional reaction media and streamed replies.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.gork/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

// loadConfig loads and validates the config file. The logger is rebuilt
// from the logging section unless --log-level was given.
func loadConfig(forRun bool) (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := setupLogging(cfg.Logging); err != nil {
		return cfg, err
	}

	validate := config.Validate
	if forRun {
		validate = config.ValidateForRun
	}
	issues := validate(&cfg)
	if len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return cfg, &config.ConfigError{
			Message: fmt.Sprintf("validation failed with %d issue(s)", len(issues)),
		}
	}
	return cfg, nil
}

func setupLogging(lc config.LoggingConfig) error {
	if lc.File == "" {
		log = logging.NewWithFormat(nil, lc.Level, lc.Format)
		return nil
	}
	path := paths.Resolve(lc.File)
	if err := os.MkdirAll(paths.Logs, 0o700); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	log = logging.NewWithFormat(f, lc.Level, lc.Format)
	return nil
}
