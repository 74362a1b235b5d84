package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.BasicConfig.ServerAddress)
	assert.Equal(t, "sqlite3", cfg.BasicConfig.Database)
	assert.Equal(t, "gemini", cfg.BasicConfig.ChatProvider)
	assert.Equal(t, 15, cfg.BasicConfig.HTTPTimeout)
	assert.Equal(t, 25, cfg.Limits.Daily)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, "gemini-2.0-flash-exp", cfg.Image.Model)
	assert.Equal(t, "gemini-2.0-flash", cfg.Provider("gemini").Model)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadReadsJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"basic_config": {"server_address": ":7000", "chat_provider": "openai", "max_workers": 4},
		"providers": {"openai": {"model": "gpt-4o", "api_key": "file-key"}},
		"redis": {"enabled": true, "port": 6380},
		"limits": {"daily": 10}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.BasicConfig.ServerAddress)
	assert.Equal(t, "openai", cfg.BasicConfig.ChatProvider)
	assert.Equal(t, 4, cfg.BasicConfig.MaxWorkers)
	assert.Equal(t, 2, cfg.BasicConfig.MinWorkers)
	assert.Equal(t, "gpt-4o", cfg.Provider("openai").Model)
	assert.Equal(t, "file-key", cfg.Provider("openai").APIKey)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.Equal(t, 10, cfg.Limits.Daily)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"providers": {"gemini": {"api_key": "file-key"}}}`), 0o600))

	t.Setenv("MELIGY_BASIC_CONFIG_SERVER_ADDRESS", ":9999")
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("GOOGLE_SEARCH_API_KEY", "search-key")
	t.Setenv("GOOGLE_SEARCH_ENGINE_ID", "cx-id")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.BasicConfig.ServerAddress)
	assert.Equal(t, "env-key", cfg.Provider("gemini").APIKey)
	assert.Equal(t, "search-key", cfg.Search.GoogleAPIKey)
	assert.Equal(t, "cx-id", cfg.Search.GoogleSearchEngineID)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"database": `{"basic_config": {"database": "postgres"}}`,
		"provider": `{"basic_config": {"chat_provider": "llama"}}`,
		"limit":    `{"limits": {"daily": 0}}`,
		"syntax":   `{"basic_config": `,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestProviderOnNilConfig(t *testing.T) {
	var cfg *Config
	assert.Equal(t, ProviderConfig{}, cfg.Provider("gemini"))
}
