package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.True(t, cfg.Bot.EnableWhitelist)
	assert.Equal(t, 30, cfg.Bot.AllowedMessagesPerInterval)
	assert.Equal(t, 10, cfg.Bot.TimeoutIntervalMins)
	assert.True(t, cfg.Bot.CanRespondToDM)
	assert.Equal(t, 60, cfg.Bot.PresenceMessageIntervalMins)
	assert.True(t, cfg.Bot.StreamOutput)
	assert.Equal(t, 0.5, cfg.Bot.StreamEditIntervalSecs)
	assert.Equal(t, 10, cfg.Bot.ThreadHistoryLimit)
	assert.Equal(t, "gpt-4.1-mini", cfg.AI.Model)
	assert.Equal(t, 0.8, cfg.AI.Temperature)
	assert.Equal(t, 500, cfg.AI.MaxTokens)
	assert.Equal(t, 0.2, cfg.AI.AdditionChance)
	assert.True(t, cfg.Media.PostMedia)
	assert.Equal(t, 10, cfg.Media.Internet.Limit)
	assert.Equal(t, "token", cfg.Gateway.Auth.Mode)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1-mini", cfg.AI.Model)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
discord:
  token: abc
bot:
  admins: ["1", "2"]
  channelWhitelist: ["100"]
  enableWhitelist: false
  allowedMessagesPerInterval: 5
  streamOutput: false
ai:
  identity: You are Gork.
  instructions: Be brief.
  potentialAdditions: ["Talk like a pirate."]
  model: gpt-5-mini
  temperature: 0.3
  providers:
    openai:
      apiKey: sk-test
media:
  default:
    enabled: true
    path: media/default.json
    chance: 0.1
    instructions: You can post a gif
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "abc", cfg.Discord.Token)
	assert.Equal(t, []string{"1", "2"}, cfg.Bot.Admins)
	assert.False(t, cfg.Bot.EnableWhitelist)
	assert.Equal(t, 5, cfg.Bot.AllowedMessagesPerInterval)
	assert.Equal(t, 10, cfg.Bot.TimeoutIntervalMins, "unset keys keep defaults")
	assert.False(t, cfg.Bot.StreamOutput)
	assert.True(t, cfg.Bot.CanRespondToDM)
	assert.Equal(t, "gpt-5-mini", cfg.AI.Model)
	assert.Equal(t, 0.3, cfg.AI.Temperature)
	assert.Equal(t, "sk-test", cfg.AI.Provider("openai").APIKey)
	assert.True(t, cfg.Media.Default.Enabled)
	assert.Equal(t, 0.1, cfg.Media.Default.Chance)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bot: [unclosed"), 0o600))

	_, err := Load(path)
	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "from-env")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("GORK_MODEL", "gpt-4o-mini")
	t.Setenv("GORK_LOG_LEVEL", "DEBUG")
	t.Setenv("GORK_TESTING_MODE", "true")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Discord.Token)
	assert.Equal(t, "sk-env", cfg.AI.Provider("openai").APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.AI.TestingMode)
}

func TestLoadExpandsSensitiveFields(t *testing.T) {
	t.Setenv("MY_TENOR_KEY", "tenor-secret")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
media:
  internet:
    enabled: true
    apiKey: ${MY_TENOR_KEY}
gateway:
  auth:
    token: ${UNSET_GORK_VAR}
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tenor-secret", cfg.Media.Internet.APIKey)
	assert.Equal(t, "${UNSET_GORK_VAR}", cfg.Gateway.Auth.Token)
}

func TestWriteDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	written, err := WriteDefaults(path)
	require.NoError(t, err)
	assert.True(t, written)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Defaults().Bot, cfg.Bot)

	written, err = WriteDefaults(path)
	require.NoError(t, err)
	assert.False(t, written)
}

func TestBotConfigHelpers(t *testing.T) {
	b := BotConfig{
		Admins:                 []string{"7"},
		ChannelWhitelist:       []string{"100"},
		EnableWhitelist:        true,
		TimeoutIntervalMins:    10,
		StreamEditIntervalSecs: 0.5,
	}
	assert.True(t, b.IsAdmin("7"))
	assert.False(t, b.IsAdmin("8"))
	assert.True(t, b.ChannelAllowed("100"))
	assert.False(t, b.ChannelAllowed("200"))
	assert.Equal(t, 10*time.Minute, b.RateInterval())
	assert.Equal(t, 500*time.Millisecond, b.StreamEditInterval())

	b.EnableWhitelist = false
	assert.True(t, b.ChannelAllowed("200"))
}

func TestParseConfigPath(t *testing.T) {
	parts, err := ParseConfigPath("bot.allowedMessagesPerInterval")
	require.NoError(t, err)
	assert.Equal(t, []string{"bot", "allowedMessagesPerInterval"}, parts)

	_, err = ParseConfigPath("")
	assert.Error(t, err)
}

func TestLoadRawAndSaveRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	raw, err := LoadRaw(path)
	require.NoError(t, err)
	assert.Empty(t, raw)

	SetValueAtPath(raw, []string{"ai", "model"}, "gpt-4.1-nano")
	require.NoError(t, SaveRaw(path, raw))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1-nano", cfg.AI.Model)
}
