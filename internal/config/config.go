package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `mapstructure:"basic_config"`
	Providers   map[string]ProviderConfig `mapstructure:"providers"`
	Databases   map[string]DatabaseConfig `mapstructure:"databases"`
	Redis       RedisConfig               `mapstructure:"redis"`
	Search      SearchConfig              `mapstructure:"search"`
	Image       ImageConfig               `mapstructure:"image"`
	Limits      LimitsConfig              `mapstructure:"limits"`
	Log         LogConfig                 `mapstructure:"log"`
}

type ProviderConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
}

type BasicConfig struct {
	ServerAddress string `mapstructure:"server_address"`
	Database      string `mapstructure:"database"`
	// ChatProvider selects the conversational backend: gemini, openai or claude.
	ChatProvider      string `mapstructure:"chat_provider"`
	MinWorkers        int    `mapstructure:"min_workers"`
	MaxWorkers        int    `mapstructure:"max_workers"`
	QueueSize         int    `mapstructure:"queue_size"`
	WorkerIdleTimeout int    `mapstructure:"worker_idle_timeout"` // minutes
	TokenTTL          int    `mapstructure:"token_ttl"`           // hours
	TokenSweep        int    `mapstructure:"token_sweep"`         // minutes
	TimeZone          string `mapstructure:"time_zone"`
	HTTPTimeout       int    `mapstructure:"http_timeout"` // seconds
}

type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DBName   string `mapstructure:"dbname"`
	Params   string `mapstructure:"params"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SearchConfig struct {
	MaxResults           int    `mapstructure:"max_results"`
	InstantAnswerURL     string `mapstructure:"instant_answer_url"`
	WikipediaURL         string `mapstructure:"wikipedia_url"`
	GoogleAPIKey         string `mapstructure:"google_api_key"`
	GoogleSearchEngineID string `mapstructure:"google_search_engine_id"`
	WebTool              bool   `mapstructure:"web_tool"`
}

type ImageConfig struct {
	Model           string `mapstructure:"model"`
	PollinationsURL string `mapstructure:"pollinations_url"`
	PicsumURL       string `mapstructure:"picsum_url"`
}

type LimitsConfig struct {
	Daily int `mapstructure:"daily"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("basic_config.server_address", ":8090")
	v.SetDefault("basic_config.database", "sqlite3")
	v.SetDefault("basic_config.chat_provider", "gemini")
	v.SetDefault("basic_config.min_workers", 2)
	v.SetDefault("basic_config.max_workers", 16)
	v.SetDefault("basic_config.queue_size", 64)
	v.SetDefault("basic_config.worker_idle_timeout", 5)
	v.SetDefault("basic_config.token_ttl", 24*30)
	v.SetDefault("basic_config.token_sweep", 60)
	v.SetDefault("basic_config.time_zone", "Local")
	v.SetDefault("basic_config.http_timeout", 15)

	v.SetDefault("providers.gemini.model", "gemini-2.0-flash")
	v.SetDefault("providers.openai.model", "gpt-4o-mini")
	v.SetDefault("providers.claude.model", "claude-3-5-haiku-latest")

	v.SetDefault("databases.sqlite3.dsn", "file:meligy.db?_foreign_keys=on")
	v.SetDefault("databases.mysql.host", "127.0.0.1")
	v.SetDefault("databases.mysql.port", 3306)
	v.SetDefault("databases.mysql.params", "parseTime=true&charset=utf8mb4&loc=UTC")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.instant_answer_url", "https://api.duckduckgo.com/")
	v.SetDefault("search.wikipedia_url", "https://en.wikipedia.org")
	v.SetDefault("search.web_tool", true)

	v.SetDefault("image.model", "gemini-2.0-flash-exp")
	v.SetDefault("image.pollinations_url", "https://image.pollinations.ai/prompt/")
	v.SetDefault("image.picsum_url", "https://picsum.photos/seed/")

	v.SetDefault("limits.daily", 25)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads configuration from the provided path (defaults to config.json).
// A missing file is not an error; defaults and MELIGY_* environment variables apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(absPath)
	v.SetEnvPrefix("MELIGY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", absPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	applyEnvOverrides(v, &cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides lets the well-known provider variables win over file values.
func applyEnvOverrides(v *viper.Viper, cfg *Config) {
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	overrides := map[string]string{
		"gemini": "GEMINI_API_KEY",
		"openai": "OPENAI_API_KEY",
		"claude": "ANTHROPIC_API_KEY",
	}
	for name, env := range overrides {
		_ = v.BindEnv("env."+name, env)
		if key := v.GetString("env." + name); key != "" {
			p := cfg.Providers[name]
			p.APIKey = key
			cfg.Providers[name] = p
		}
	}
	_ = v.BindEnv("env.google_search_key", "GOOGLE_SEARCH_API_KEY")
	_ = v.BindEnv("env.google_search_cx", "GOOGLE_SEARCH_ENGINE_ID")
	if key := v.GetString("env.google_search_key"); key != "" {
		cfg.Search.GoogleAPIKey = key
	}
	if id := v.GetString("env.google_search_cx"); id != "" {
		cfg.Search.GoogleSearchEngineID = id
	}
}

func (c *Config) validate() error {
	switch c.BasicConfig.Database {
	case "sqlite3", "mysql":
	default:
		return fmt.Errorf("unsupported database %q", c.BasicConfig.Database)
	}
	switch c.BasicConfig.ChatProvider {
	case "gemini", "openai", "claude":
	default:
		return fmt.Errorf("unsupported chat provider %q", c.BasicConfig.ChatProvider)
	}
	if c.Limits.Daily <= 0 {
		return fmt.Errorf("limits.daily must be positive")
	}
	return nil
}

// Provider returns the provider block for name, or an empty config.
func (c *Config) Provider(name string) ProviderConfig {
	if c == nil || c.Providers == nil {
		return ProviderConfig{}
	}
	return c.Providers[name]
}
