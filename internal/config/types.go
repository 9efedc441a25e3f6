package config

// Config is the root gork configuration, loaded from ~/.gork/config.yaml.
type Config struct {
	Discord  DiscordConfig  `yaml:"discord"`
	Bot      BotConfig      `yaml:"bot"`
	AI       AIConfig       `yaml:"ai"`
	Media    MediaConfig    `yaml:"media"`
	LinkInfo LinkInfoConfig `yaml:"linkInfo,omitempty"`
	Store    StoreConfig    `yaml:"store,omitempty"`
	Gateway  GatewayConfig  `yaml:"gateway,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
}

// DiscordConfig holds the bot credentials.
type DiscordConfig struct {
	Token string `yaml:"token,omitempty"`
}

// BotConfig controls who the bot answers and how often.
type BotConfig struct {
	Admins           []string `yaml:"admins,omitempty"`
	ChannelWhitelist []string `yaml:"channelWhitelist,omitempty"`
	EnableWhitelist  bool     `yaml:"enableWhitelist"`

	AllowedMessagesPerInterval int `yaml:"allowedMessagesPerInterval"`
	TimeoutIntervalMins        int `yaml:"timeoutIntervalMins"`

	CanRespondToDM bool `yaml:"canRespondToDM"`

	PresenceMessagePath         string `yaml:"presenceMessagePath,omitempty"`
	PresenceMessageIntervalMins int    `yaml:"presenceMessageIntervalMins"`

	StreamOutput           bool    `yaml:"streamOutput"`
	StreamEditIntervalSecs float64 `yaml:"streamEditIntervalSecs"`

	ThreadHistoryLimit int `yaml:"threadHistoryLimit"`
}

// AIConfig configures prompt content and the generation request.
type AIConfig struct {
	Identity           string   `yaml:"identity"`
	Instructions       string   `yaml:"instructions"`
	PotentialAdditions []string `yaml:"potentialAdditions,omitempty"`
	AdditionChance     float64  `yaml:"additionChance"`

	Model          string   `yaml:"model"`
	FallbackModels []string `yaml:"fallbackModels,omitempty"`
	Temperature    float64  `yaml:"temperature"`
	MaxTokens      int      `yaml:"maxTokens"`

	// TestingMode skips the generation API and replies with TestingResponse.
	TestingMode     bool   `yaml:"testingMode,omitempty"`
	TestingResponse string `yaml:"testingResponse,omitempty"`

	Providers map[string]ProviderConfig `yaml:"providers,omitempty"`
}

// ProviderConfig holds credentials for a generation provider ("openai", "gemini").
type ProviderConfig struct {
	APIKey  string `yaml:"apiKey,omitempty"`
	BaseURL string `yaml:"baseUrl,omitempty"`
}

// MediaConfig configures %%keyword%% media resolution and the hints that
// tell the model which keywords exist.
type MediaConfig struct {
	PostMedia bool          `yaml:"postMedia"`
	Default   MediaSource   `yaml:"default"`
	Custom    MediaSource   `yaml:"custom"`
	Internet  InternetMedia `yaml:"internet"`
}

// MediaSource is a local JSON catalog of tagged media.
type MediaSource struct {
	Enabled      bool    `yaml:"enabled"`
	Path         string  `yaml:"path,omitempty"`
	Chance       float64 `yaml:"chance"`
	Instructions string  `yaml:"instructions,omitempty"`
}

// InternetMedia is the Tenor keyword search fallback.
type InternetMedia struct {
	Enabled      bool    `yaml:"enabled"`
	Chance       float64 `yaml:"chance"`
	Instructions string  `yaml:"instructions,omitempty"`
	APIKey       string  `yaml:"apiKey,omitempty"`
	ClientKey    string  `yaml:"clientKey,omitempty"`
	Limit        int     `yaml:"limit"`
	BaseURL      string  `yaml:"baseUrl,omitempty"`
}

// LinkInfoConfig enables lookups for links the platform has not embedded yet.
type LinkInfoConfig struct {
	YouTubeAPIKey string `yaml:"youtubeApiKey,omitempty"`
}

// StoreConfig enables SQLite persistence of rate-limit state.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// GatewayConfig configures the control-plane server.
type GatewayConfig struct {
	Enabled bool        `yaml:"enabled"`
	Port    int         `yaml:"port,omitempty"`
	Bind    string      `yaml:"bind,omitempty"` // "loopback", "lan"
	Auth    GatewayAuth `yaml:"auth,omitempty"`
}

// GatewayAuth configures control-plane authentication.
type GatewayAuth struct {
	Mode     string `yaml:"mode,omitempty"` // "token", "password"
	Token    string `yaml:"token,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // "console", "json"
	File   string `yaml:"file,omitempty"`
}
