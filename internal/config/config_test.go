package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"BINANCE_API_KEY", "BINANCE_SECRET_KEY", "BINANCE_FUTURES_BASE_URL",
	"HTTP_TIMEOUT_SEC", "MAX_RETRIES", "RETRY_DELAY_MS",
	"EXPORT_DIR", "CHECKPOINT_PATH", "LOG_LEVEL", "LOG_FILE",
	"PROGRESS_ADDR", "TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID",
}

// clearEnv blanks every variable Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BINANCE_API_KEY", "key")
	t.Setenv("BINANCE_SECRET_KEY", "secret")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "key", cfg.BinanceApiKey)
	assert.Equal(t, "secret", cfg.BinanceSecretKey)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 60, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultLogFile, cfg.LogFile)
	assert.NotEmpty(t, cfg.ExportDir)
	assert.Empty(t, cfg.CheckpointPath)
	assert.Empty(t, cfg.ProgressAddr)
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"BINANCE_API_KEY=file-key\n"+
			"BINANCE_SECRET_KEY=file-secret\n"+
			"HTTP_TIMEOUT_SEC=3\n"+
			"MAX_RETRIES=5\n"+
			"RETRY_DELAY_MS=250\n"+
			"EXPORT_DIR=/tmp/exports\n"+
			"CHECKPOINT_PATH=/tmp/exports/1.json\n"+
			"PROGRESS_ADDR=127.0.0.1:8787\n",
	), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.BinanceApiKey)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, "/tmp/exports", cfg.ExportDir)
	assert.Equal(t, "/tmp/exports/1.json", cfg.CheckpointPath)
	assert.Equal(t, "127.0.0.1:8787", cfg.ProgressAddr)
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]map[string]string{
		"missing api key":    {"BINANCE_SECRET_KEY": "s"},
		"missing secret key": {"BINANCE_API_KEY": "k"},
		"bad timeout":        {"BINANCE_API_KEY": "k", "BINANCE_SECRET_KEY": "s", "HTTP_TIMEOUT_SEC": "ten"},
		"negative retries":   {"BINANCE_API_KEY": "k", "BINANCE_SECRET_KEY": "s", "MAX_RETRIES": "-1"},
		"bad delay":          {"BINANCE_API_KEY": "k", "BINANCE_SECRET_KEY": "s", "RETRY_DELAY_MS": "1.5"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load(missingEnvFile(t))
			assert.Error(t, err)
		})
	}
}
