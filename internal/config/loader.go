package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields resolves ${ENV_VAR} references in credential fields.
func expandSensitiveFields(cfg *Config) {
	cfg.Discord.Token = expandEnvVars(cfg.Discord.Token)
	cfg.Gateway.Auth.Token = expandEnvVars(cfg.Gateway.Auth.Token)
	cfg.Gateway.Auth.Password = expandEnvVars(cfg.Gateway.Auth.Password)
	cfg.Media.Internet.APIKey = expandEnvVars(cfg.Media.Internet.APIKey)
	cfg.LinkInfo.YouTubeAPIKey = expandEnvVars(cfg.LinkInfo.YouTubeAPIKey)
	for name, provider := range cfg.AI.Providers {
		provider.APIKey = expandEnvVars(provider.APIKey)
		cfg.AI.Providers[name] = provider
	}
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// WriteDefaults writes the default config to path if nothing exists there.
func WriteDefaults(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, err
	}
	return true, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields that an explicit YAML value may have cleared.
func applyDefaults(cfg *Config) {
	if cfg.AI.Model == "" {
		cfg.AI.Model = defaultModel
	}
	if cfg.Bot.ThreadHistoryLimit == 0 {
		cfg.Bot.ThreadHistoryLimit = defaultHistoryLimit
	}
	if cfg.Bot.PresenceMessageIntervalMins == 0 {
		cfg.Bot.PresenceMessageIntervalMins = defaultPresenceMins
	}
	if cfg.Media.Internet.Limit == 0 {
		cfg.Media.Internet.Limit = defaultTenorLimit
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = defaultGatewayPort
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = "loopback"
	}
	if cfg.Gateway.Auth.Mode == "" {
		cfg.Gateway.Auth.Mode = "token"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

// applyEnvOverrides reads GORK_* and well-known credential variables.
func applyEnvOverrides(cfg *Config) {
	if v := firstEnv("GORK_DISCORD_TOKEN", "DISCORD_TOKEN"); v != "" {
		cfg.Discord.Token = v
	}
	if v := firstEnv("GORK_OPENAI_API_KEY", "OPENAI_API_KEY"); v != "" {
		setProviderKey(cfg, "openai", v)
	}
	if v := firstEnv("GORK_GEMINI_API_KEY", "GEMINI_API_KEY"); v != "" {
		setProviderKey(cfg, "gemini", v)
	}
	if v := firstEnv("GORK_TENOR_API_KEY", "TENOR_API_KEY"); v != "" {
		cfg.Media.Internet.APIKey = v
	}
	if v := firstEnv("GORK_YOUTUBE_API_KEY", "YOUTUBE_API_KEY"); v != "" {
		cfg.LinkInfo.YouTubeAPIKey = v
	}
	if v := os.Getenv("GORK_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("GORK_TESTING_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AI.TestingMode = b
		}
	}
	if v := os.Getenv("GORK_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("GORK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}

func setProviderKey(cfg *Config, name, key string) {
	if cfg.AI.Providers == nil {
		cfg.AI.Providers = map[string]ProviderConfig{}
	}
	p := cfg.AI.Providers[name]
	p.APIKey = key
	cfg.AI.Providers[name] = p
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}
