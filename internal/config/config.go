package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultBaseURL    = "https://fapi.binance.com"
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 60
	DefaultRetryDelay = time.Second
	DefaultLogFile    = "logs/app.log"
)

type Config struct {
	// Binance API
	BinanceApiKey    string
	BinanceSecretKey string
	BaseURL          string

	// Transport
	HTTPTimeout time.Duration
	MaxRetries  int
	RetryDelay  time.Duration

	// Files
	ExportDir      string
	CheckpointPath string

	// Logging
	LogLevel string
	LogFile  string

	// Progress websocket listen address, e.g. 127.0.0.1:8787
	ProgressAddr string

	// Telegram
	TelegramToken  string
	TelegramChatID string
}

// Load reads the given env files (default .env) into the process environment
// and builds the configuration from it. A missing env file is not an error.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s file: %w", f, err)
		}
	}

	cfg := &Config{}
	var err error

	cfg.BinanceApiKey = os.Getenv("BINANCE_API_KEY")
	if cfg.BinanceApiKey == "" {
		return nil, fmt.Errorf("BINANCE_API_KEY is required")
	}
	cfg.BinanceSecretKey = os.Getenv("BINANCE_SECRET_KEY")
	if cfg.BinanceSecretKey == "" {
		return nil, fmt.Errorf("BINANCE_SECRET_KEY is required")
	}

	cfg.BaseURL = getEnv("BINANCE_FUTURES_BASE_URL", DefaultBaseURL)

	cfg.HTTPTimeout = DefaultTimeout
	if val := os.Getenv("HTTP_TIMEOUT_SEC"); val != "" {
		secs, err := parseInt(val, "HTTP_TIMEOUT_SEC")
		if err != nil {
			return nil, err
		}
		cfg.HTTPTimeout = time.Duration(secs) * time.Second
	}

	cfg.MaxRetries = DefaultMaxRetries
	if val := os.Getenv("MAX_RETRIES"); val != "" {
		cfg.MaxRetries, err = parseInt(val, "MAX_RETRIES")
		if err != nil {
			return nil, err
		}
	}

	cfg.RetryDelay = DefaultRetryDelay
	if val := os.Getenv("RETRY_DELAY_MS"); val != "" {
		ms, err := parseInt(val, "RETRY_DELAY_MS")
		if err != nil {
			return nil, err
		}
		cfg.RetryDelay = time.Duration(ms) * time.Millisecond
	}

	cfg.ExportDir = os.Getenv("EXPORT_DIR")
	if cfg.ExportDir == "" {
		cfg.ExportDir = defaultExportDir()
	}
	cfg.CheckpointPath = os.Getenv("CHECKPOINT_PATH")

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFile = getEnv("LOG_FILE", DefaultLogFile)

	cfg.ProgressAddr = os.Getenv("PROGRESS_ADDR")

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")

	return cfg, nil
}

// defaultExportDir is the user's desktop, falling back to the working directory.
func defaultExportDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Desktop")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(value, name string) (int, error) {
	if value == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", name, err)
	}
	if i < 0 {
		return 0, fmt.Errorf("invalid value for %s: must not be negative", name)
	}
	return i, nil
}
