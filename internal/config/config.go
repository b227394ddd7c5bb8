package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// ServerURL is the API base URL. It is chosen by environment, not
	// editable from inside the client.
	ServerURL string
	// DataFile is the bbolt file holding the session and preferences.
	DataFile string
	// LogFile receives structured logs; the terminal itself belongs to
	// the UI, so logging to stdout is not an option.
	LogFile string
	// DownloadDir is where saved attachments land.
	DownloadDir string
	// PollInterval is the chat snapshot refresh interval.
	PollInterval time.Duration
	// CountInterval is the home screen open-report count refresh interval.
	CountInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	pollInterval, err := time.ParseDuration(getEnv("POLL_INTERVAL", "3s"))
	if err != nil {
		return nil, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
	}
	countInterval, err := time.ParseDuration(getEnv("COUNT_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid COUNT_INTERVAL: %w", err)
	}

	cfg := &Config{
		ServerURL:     getEnv("SERVER_URL", "http://localhost:8000/api"),
		DataFile:      getEnv("OPORA_DB", "opora.db"),
		LogFile:       getEnv("LOG_FILE", "opora.log"),
		DownloadDir:   getEnv("DOWNLOAD_DIR", "attachments"),
		PollInterval:  pollInterval,
		CountInterval: countInterval,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("SERVER_URL is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("SERVER_URL must be http or https, got %q", c.ServerURL)
	}
	// A trailing slash would produce double slashes when joining paths.
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")

	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be greater than 0")
	}
	if c.CountInterval <= 0 {
		return fmt.Errorf("COUNT_INTERVAL must be greater than 0")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
