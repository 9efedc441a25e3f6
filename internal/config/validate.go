package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	// Bot
	if cfg.Bot.AllowedMessagesPerInterval <= 0 {
		add("bot.allowedMessagesPerInterval", "must be positive, got %d", cfg.Bot.AllowedMessagesPerInterval)
	}
	if cfg.Bot.TimeoutIntervalMins <= 0 {
		add("bot.timeoutIntervalMins", "must be positive, got %d", cfg.Bot.TimeoutIntervalMins)
	}
	if cfg.Bot.StreamEditIntervalSecs < 0 {
		add("bot.streamEditIntervalSecs", "must not be negative, got %g", cfg.Bot.StreamEditIntervalSecs)
	}
	if cfg.Bot.ThreadHistoryLimit < 1 || cfg.Bot.ThreadHistoryLimit > 100 {
		add("bot.threadHistoryLimit", "must be 1-100, got %d", cfg.Bot.ThreadHistoryLimit)
	}
	if cfg.Bot.PresenceMessageIntervalMins < 0 {
		add("bot.presenceMessageIntervalMins", "must not be negative, got %d", cfg.Bot.PresenceMessageIntervalMins)
	}

	// AI
	if strings.TrimSpace(cfg.AI.Model) == "" {
		add("ai.model", "model is required")
	}
	if strings.TrimSpace(cfg.AI.Instructions) == "" && !cfg.AI.TestingMode {
		add("ai.instructions", "instructions are required")
	}
	if cfg.AI.Temperature < 0 || cfg.AI.Temperature > 1 {
		add("ai.temperature", "must be between 0 and 1, got %g", cfg.AI.Temperature)
	}
	if cfg.AI.MaxTokens <= 0 {
		add("ai.maxTokens", "must be positive, got %d", cfg.AI.MaxTokens)
	}
	if cfg.AI.AdditionChance < 0 || cfg.AI.AdditionChance > 1 {
		add("ai.additionChance", "must be between 0 and 1, got %g", cfg.AI.AdditionChance)
	}
	validProviders := []string{"openai", "gemini"}
	for name := range cfg.AI.Providers {
		if !slices.Contains(validProviders, name) {
			add("ai.providers."+name, "unknown provider, must be one of %v", validProviders)
		}
	}

	// Media
	chanceTotal := 0.0
	for path, chance := range map[string]float64{
		"media.default.chance":  cfg.Media.Default.Chance,
		"media.custom.chance":   cfg.Media.Custom.Chance,
		"media.internet.chance": cfg.Media.Internet.Chance,
	} {
		if chance < 0 || chance > 1 {
			add(path, "must be between 0 and 1, got %g", chance)
		}
		chanceTotal += chance
	}
	if chanceTotal > 1 {
		add("media", "combined hint chance must not exceed 1, got %g", chanceTotal)
	}
	if cfg.Media.Default.Enabled && cfg.Media.Default.Path == "" {
		add("media.default.path", "path is required when enabled")
	}
	if cfg.Media.Custom.Enabled && cfg.Media.Custom.Path == "" {
		add("media.custom.path", "path is required when enabled")
	}
	if cfg.Media.Internet.Enabled && cfg.Media.Internet.APIKey == "" {
		add("media.internet.apiKey", "api key is required when enabled")
	}
	if cfg.Media.Internet.Limit < 1 || cfg.Media.Internet.Limit > 50 {
		add("media.internet.limit", "must be 1-50, got %d", cfg.Media.Internet.Limit)
	}

	// Gateway
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		add("gateway.port", "port must be 0-65535, got %d", cfg.Gateway.Port)
	}
	validBinds := []string{"loopback", "lan"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		add("gateway.bind", "must be one of %v, got %q", validBinds, cfg.Gateway.Bind)
	}
	validAuthModes := []string{"token", "password"}
	if cfg.Gateway.Auth.Mode != "" && !slices.Contains(validAuthModes, cfg.Gateway.Auth.Mode) {
		add("gateway.auth.mode", "must be one of %v, got %q", validAuthModes, cfg.Gateway.Auth.Mode)
	}

	// Logging
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		add("logging.level", "must be one of %v, got %q", validLogLevels, cfg.Logging.Level)
	}
	validFormats := []string{"console", "json"}
	if cfg.Logging.Format != "" && !slices.Contains(validFormats, cfg.Logging.Format) {
		add("logging.format", "must be one of %v, got %q", validFormats, cfg.Logging.Format)
	}

	slices.SortFunc(issues, func(a, b ValidationIssue) int { return strings.Compare(a.Path, b.Path) })
	return issues
}

// ValidateForRun adds checks that only matter when connecting to Discord.
func ValidateForRun(cfg *Config) []ValidationIssue {
	issues := Validate(cfg)
	if cfg.Discord.Token == "" {
		issues = append(issues, ValidationIssue{Path: "discord.token", Message: "token is required (or set DISCORD_TOKEN)"})
	}
	return issues
}
