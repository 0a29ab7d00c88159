package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	APIBaseURL   string        `mapstructure:"NEXUS_API_URL"`
	Env          string        `mapstructure:"ENV"`
	LogLevel     string        `mapstructure:"LOG_LEVEL"`
	SessionStore string        `mapstructure:"SESSION_STORE"`
	SessionFile  string        `mapstructure:"SESSION_FILE"`
	SessionKey   string        `mapstructure:"SESSION_KEY"`
	RedisURL     string        `mapstructure:"REDIS_URL"`
	HTTPTimeout  time.Duration `mapstructure:"HTTP_TIMEOUT"`
	ScanFPS      int           `mapstructure:"SCAN_FPS"`
	ScanBoxSize  int           `mapstructure:"SCAN_BOX_SIZE"`
	DateLayout   string        `mapstructure:"DATE_LAYOUT"`

	SandboxPort           string `mapstructure:"SANDBOX_PORT"`
	SandboxSigningKey     string `mapstructure:"SANDBOX_SIGNING_KEY"`
	SandboxVitalsEnvelope bool   `mapstructure:"SANDBOX_VITALS_ENVELOPE"`
	SandboxSeed           int64  `mapstructure:"SANDBOX_SEED"`
	SandboxPatients       int    `mapstructure:"SANDBOX_PATIENTS"`
}

const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

var keys = []string{
	"NEXUS_API_URL",
	"ENV",
	"LOG_LEVEL",
	"SESSION_STORE",
	"SESSION_FILE",
	"SESSION_KEY",
	"REDIS_URL",
	"HTTP_TIMEOUT",
	"SCAN_FPS",
	"SCAN_BOX_SIZE",
	"DATE_LAYOUT",
	"SANDBOX_PORT",
	"SANDBOX_SIGNING_KEY",
	"SANDBOX_VITALS_ENVELOPE",
	"SANDBOX_SEED",
	"SANDBOX_PATIENTS",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("NEXUS_API_URL", "http://127.0.0.1:8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SESSION_STORE", StoreFile)
	v.SetDefault("SESSION_FILE", defaultSessionFile())
	v.SetDefault("SESSION_KEY", "authToken")
	v.SetDefault("HTTP_TIMEOUT", "0s") // no timeout; a hung request stays loading
	v.SetDefault("SCAN_FPS", 10)
	v.SetDefault("SCAN_BOX_SIZE", 250)
	v.SetDefault("DATE_LAYOUT", "1/2/2006")
	v.SetDefault("SANDBOX_PORT", "8000")
	v.SetDefault("SANDBOX_SIGNING_KEY", "nexus-sandbox-signing-key")
	v.SetDefault("SANDBOX_VITALS_ENVELOPE", false)
	v.SetDefault("SANDBOX_SEED", 42)
	v.SetDefault("SANDBOX_PATIENTS", 5)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nexus-session.json"
	}
	return filepath.Join(home, ".nexus", "session.json")
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks the values Load cannot default its way out of.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("NEXUS_API_URL must be an absolute URL, got %q", c.APIBaseURL)
	}

	switch c.SessionStore {
	case StoreFile:
		if c.SessionFile == "" {
			return fmt.Errorf("SESSION_FILE is required when SESSION_STORE is %q", StoreFile)
		}
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when SESSION_STORE is %q", StoreRedis)
		}
	default:
		return fmt.Errorf("SESSION_STORE must be \"file\", \"memory\", or \"redis\", got %q", c.SessionStore)
	}

	if c.SessionKey == "" {
		return fmt.Errorf("SESSION_KEY must not be empty")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("HTTP_TIMEOUT must not be negative, got %s", c.HTTPTimeout)
	}
	if c.ScanFPS <= 0 {
		return fmt.Errorf("SCAN_FPS must be positive, got %d", c.ScanFPS)
	}
	if c.ScanBoxSize < 0 {
		return fmt.Errorf("SCAN_BOX_SIZE must not be negative, got %d", c.ScanBoxSize)
	}
	if c.DateLayout == "" {
		return fmt.Errorf("DATE_LAYOUT must not be empty")
	}
	return nil
}
