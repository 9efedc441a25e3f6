package config

import (
	"fmt"
	"slices"
	"time"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

const (
	defaultModel           = "gpt-4.1-mini"
	defaultGatewayPort     = 18790
	defaultTenorLimit      = 10
	defaultHistoryLimit    = 10
	defaultAllowedMessages = 30
	defaultIntervalMins    = 10
	defaultPresenceMins    = 60
)

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Bot: BotConfig{
			EnableWhitelist:             true,
			AllowedMessagesPerInterval:  defaultAllowedMessages,
			TimeoutIntervalMins:         defaultIntervalMins,
			CanRespondToDM:              true,
			PresenceMessageIntervalMins: defaultPresenceMins,
			StreamOutput:                true,
			StreamEditIntervalSecs:      0.5,
			ThreadHistoryLimit:          defaultHistoryLimit,
		},
		AI: AIConfig{
			AdditionChance: 0.2,
			Model:          defaultModel,
			Temperature:    0.8,
			MaxTokens:      500,
		},
		Media: MediaConfig{
			PostMedia: true,
			Internet: InternetMedia{
				Limit: defaultTenorLimit,
			},
		},
		Gateway: GatewayConfig{
			Port: defaultGatewayPort,
			Bind: "loopback",
			Auth: GatewayAuth{Mode: "token"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// IsAdmin reports whether userID is listed in bot.admins.
func (b BotConfig) IsAdmin(userID string) bool {
	return slices.Contains(b.Admins, userID)
}

// ChannelAllowed applies the channel allow-list.
func (b BotConfig) ChannelAllowed(channelID string) bool {
	if !b.EnableWhitelist {
		return true
	}
	return slices.Contains(b.ChannelWhitelist, channelID)
}

// RateInterval is the fixed rate-limit window.
func (b BotConfig) RateInterval() time.Duration {
	return time.Duration(b.TimeoutIntervalMins) * time.Minute
}

// StreamEditInterval is the minimum spacing between streamed edits.
func (b BotConfig) StreamEditInterval() time.Duration {
	return time.Duration(b.StreamEditIntervalSecs * float64(time.Second))
}

// Provider returns the named provider config, or the zero value.
func (a AIConfig) Provider(name string) ProviderConfig {
	return a.Providers[name]
}
