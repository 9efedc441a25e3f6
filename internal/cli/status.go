package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/soyeahso/gork/internal/config"
	"github.com/soyeahso/gork/internal/llm"
	"github.com/soyeahso/gork/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show gork status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("gork %s (commit %s)\n\n", version.Version, version.Short())

			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Logs:    %s\n", paths.Logs)
			fmt.Println()

			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Println("Config:  not found (using defaults)")
			}
			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Printf("Config:  error loading: %v\n", err)
				return nil
			}

			fmt.Printf("Discord: token=%s\n", setOrMissing(cfg.Discord.Token))

			// Generation
			registry, err := llm.NewRegistryFromConfig(cmd.Context(), cfg.AI, log)
			if err != nil {
				fmt.Printf("AI:      error: %v\n", err)
			} else if providers := registry.List(); len(providers) > 0 {
				fmt.Printf("AI:      model=%s providers=%s\n", cfg.AI.Model, strings.Join(providers, ", "))
			} else {
				fmt.Printf("AI:      model=%s providers=(none configured)\n", cfg.AI.Model)
			}
			if len(cfg.AI.FallbackModels) > 0 {
				fmt.Printf("         fallbacks=%s\n", strings.Join(cfg.AI.FallbackModels, ", "))
			}
			if cfg.AI.TestingMode {
				fmt.Println("         testing mode (no generation calls)")
			}

			// Bot behaviour
			bot := cfg.Bot
			fmt.Printf("Bot:     rate=%d/%dm stream=%v dm=%v whitelist=%v admins=%d\n",
				bot.AllowedMessagesPerInterval, bot.TimeoutIntervalMins,
				bot.StreamOutput, bot.CanRespondToDM, bot.EnableWhitelist, len(bot.Admins))

			m := cfg.Media
			fmt.Printf("Media:   post=%v default=%v custom=%v internet=%v\n",
				m.PostMedia, m.Default.Enabled, m.Custom.Enabled, m.Internet.Enabled)

			if cfg.Store.Enabled {
				path := paths.Resolve(cfg.Store.Path)
				if path == "" {
					path = paths.DatabasePath()
				}
				fmt.Printf("Store:   sqlite %s\n", path)
			} else {
				fmt.Println("Store:   memory")
			}

			if cfg.Gateway.Enabled {
				bind := cfg.Gateway.Bind
				if bind == "" {
					bind = "loopback"
				}
				fmt.Printf("Gateway: port=%d bind=%s auth=%s\n", cfg.Gateway.Port, bind, cfg.Gateway.Auth.Mode)
			} else {
				fmt.Println("Gateway: disabled")
			}

			issues := config.ValidateForRun(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}

func setOrMissing(s string) string {
	if s == "" {
		return "(missing)"
	}
	return "set"
}
