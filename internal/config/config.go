// Package config loads the RPA service configuration from an optional .env
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/grez-lucas/livelo-scraper/internal/envelope"
	"github.com/grez-lucas/livelo-scraper/internal/scraper/browser"
	"github.com/grez-lucas/livelo-scraper/internal/scraper/loyalty/livelo"
)

// Config holds the service configuration.
type Config struct {
	EncryptionKey     string
	ListenAddr        string
	BaseURL           string
	BrowserMode       browser.Mode
	BrowserBin        string
	Headless          bool
	ScreenshotDir     string
	PacingScale       float64
	MaxConcurrentRuns int64
	LogLevel          slog.Level
}

// LogValue omits the encryption key.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("listen_addr", c.ListenAddr),
		slog.String("base_url", c.BaseURL),
		slog.String("browser_mode", string(c.BrowserMode)),
		slog.Bool("headless", c.Headless),
		slog.String("screenshot_dir", c.ScreenshotDir),
		slog.Float64("pacing_scale", c.PacingScale),
		slog.Int64("max_concurrent_runs", c.MaxConcurrentRuns),
		slog.String("log_level", c.LogLevel.String()),
	)
}

// Load reads .env from the working directory when present, then the
// environment. Variables already set in the environment win over .env.
//
// ENCRYPTION_KEY is required. Optional variables with defaults:
// RPA_LISTEN_ADDR (:3000), RPA_BASE_URL (https://www.livelo.com.br/),
// RPA_BROWSER_MODE (stealth), RPA_BROWSER_BIN, RPA_HEADLESS (true),
// RPA_SCREENSHOT_DIR (uploads/rpa_screenshot), RPA_PACING_SCALE (1),
// RPA_MAX_CONCURRENT_RUNS (2), RPA_LOG_LEVEL (info).
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is not an
// error; an empty path skips the file.
func LoadFile(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	key := os.Getenv("ENCRYPTION_KEY")
	if len(key) < envelope.MinMasterSecretLength {
		return nil, fmt.Errorf("%w: ENCRYPTION_KEY must be set and at least %d characters",
			envelope.ErrConfiguration, envelope.MinMasterSecretLength)
	}

	cfg := &Config{
		EncryptionKey:     key,
		ListenAddr:        ":3000",
		BaseURL:           livelo.DefaultBaseURL,
		BrowserMode:       browser.ModeStealth,
		Headless:          true,
		ScreenshotDir:     browser.DefaultScreenshotDir,
		PacingScale:       1,
		MaxConcurrentRuns: 2,
		LogLevel:          slog.LevelInfo,
	}

	if v, ok := lookup("RPA_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := lookup("RPA_BASE_URL"); ok {
		cfg.BaseURL = v
	}
	if v, ok := lookup("RPA_BROWSER_MODE"); ok {
		mode, err := browser.ParseMode(v)
		if err != nil {
			return nil, fmt.Errorf("RPA_BROWSER_MODE: %w", err)
		}
		cfg.BrowserMode = mode
	}
	if v, ok := lookup("RPA_BROWSER_BIN"); ok {
		cfg.BrowserBin = v
	}
	if v, ok := lookup("RPA_HEADLESS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("RPA_HEADLESS has invalid boolean %q: %w", v, err)
		}
		cfg.Headless = b
	}
	if v, ok := lookup("RPA_SCREENSHOT_DIR"); ok {
		cfg.ScreenshotDir = v
	}
	if v, ok := lookup("RPA_PACING_SCALE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("RPA_PACING_SCALE must be a non-negative number, got %q", v)
		}
		cfg.PacingScale = f
	}
	if v, ok := lookup("RPA_MAX_CONCURRENT_RUNS"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("RPA_MAX_CONCURRENT_RUNS must be a positive integer, got %q", v)
		}
		cfg.MaxConcurrentRuns = n
	}
	if v, ok := lookup("RPA_LOG_LEVEL"); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("RPA_LOG_LEVEL: %w", err)
		}
	}

	return cfg, nil
}

// lookup treats a blank variable as unset.
func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
