package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	Port   string
	DBPath string

	SyncInterval     time.Duration
	CooldownDuration time.Duration
	RetryAttempts    int
	RetryBackoff     time.Duration
	CallTimeout      time.Duration

	MonzoAPIURL      string
	MonzoAccessToken string
	TrueLayerAPIURL  string

	Accounts []AccountConfig
}

// AccountConfig declares one monitored credit account. Entries are upserted
// into the store at startup, so the file is the source of truth for which
// cards are under sync.
type AccountConfig struct {
	ID              string `yaml:"id"`
	Provider        string `yaml:"provider"`
	PotID           string `yaml:"pot_id"`
	OverrideEnabled bool   `yaml:"override_enabled"`
	AccessToken     string `yaml:"access_token"`
}

// fileConfig is the YAML shape; durations are strings ("2m", "3h") parsed in
// Load.
type fileConfig struct {
	HTTP struct {
		Port string `yaml:"port"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Sync struct {
		Interval      string `yaml:"interval"`
		Cooldown      string `yaml:"cooldown"`
		RetryAttempts int    `yaml:"retry_attempts"`
		RetryBackoff  string `yaml:"retry_backoff"`
		CallTimeout   string `yaml:"call_timeout"`
	} `yaml:"sync"`
	Monzo struct {
		APIURL      string `yaml:"api_url"`
		AccessToken string `yaml:"access_token"`
	} `yaml:"monzo"`
	TrueLayer struct {
		APIURL string `yaml:"api_url"`
	} `yaml:"truelayer"`
	Accounts []AccountConfig `yaml:"accounts"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	fc := &fileConfig{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, fc); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("PORT"); v != "" {
		fc.HTTP.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		fc.Database.Path = v
	}
	if v := os.Getenv("SYNC_INTERVAL"); v != "" {
		fc.Sync.Interval = v
	}
	if v := os.Getenv("COOLDOWN_DURATION"); v != "" {
		fc.Sync.Cooldown = v
	}
	if v := os.Getenv("RETRY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			fc.Sync.RetryAttempts = n
		}
	}
	if v := os.Getenv("MONZO_API_URL"); v != "" {
		fc.Monzo.APIURL = v
	}
	if v := os.Getenv("MONZO_ACCESS_TOKEN"); v != "" {
		fc.Monzo.AccessToken = v
	}
	if v := os.Getenv("TRUELAYER_API_URL"); v != "" {
		fc.TrueLayer.APIURL = v
	}

	// Defaults
	if fc.HTTP.Port == "" {
		fc.HTTP.Port = "8080"
	}
	if fc.Database.Path == "" {
		fc.Database.Path = "potsync.db"
	}
	if fc.Sync.Interval == "" {
		fc.Sync.Interval = "2m"
	}
	if fc.Sync.Cooldown == "" {
		fc.Sync.Cooldown = "3h"
	}
	if fc.Sync.RetryAttempts == 0 {
		fc.Sync.RetryAttempts = 3
	}
	if fc.Sync.RetryBackoff == "" {
		fc.Sync.RetryBackoff = "5s"
	}
	if fc.Sync.CallTimeout == "" {
		fc.Sync.CallTimeout = "30s"
	}
	if fc.Monzo.APIURL == "" {
		fc.Monzo.APIURL = "https://api.monzo.com"
	}
	if fc.TrueLayer.APIURL == "" {
		fc.TrueLayer.APIURL = "https://api.truelayer.com"
	}

	cfg := &Config{
		Port:             fc.HTTP.Port,
		DBPath:           fc.Database.Path,
		RetryAttempts:    fc.Sync.RetryAttempts,
		MonzoAPIURL:      fc.Monzo.APIURL,
		MonzoAccessToken: fc.Monzo.AccessToken,
		TrueLayerAPIURL:  fc.TrueLayer.APIURL,
		Accounts:         fc.Accounts,
	}
	for _, d := range []struct {
		name  string
		raw   string
		field *time.Duration
	}{
		{"sync.interval", fc.Sync.Interval, &cfg.SyncInterval},
		{"sync.cooldown", fc.Sync.Cooldown, &cfg.CooldownDuration},
		{"sync.retry_backoff", fc.Sync.RetryBackoff, &cfg.RetryBackoff},
		{"sync.call_timeout", fc.Sync.CallTimeout, &cfg.CallTimeout},
	} {
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", d.name, d.raw, err)
		}
		*d.field = v
	}

	return cfg, nil
}

// Validate checks that all required fields are sane.
func (c *Config) Validate() error {
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync.interval must be positive")
	}
	if c.CooldownDuration <= 0 {
		return fmt.Errorf("sync.cooldown must be positive")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("sync.retry_attempts must be at least 1")
	}
	if c.MonzoAccessToken == "" {
		return fmt.Errorf("monzo.access_token is required")
	}
	for i, acc := range c.Accounts {
		if acc.ID == "" || acc.Provider == "" || acc.PotID == "" {
			return fmt.Errorf("accounts[%d]: id, provider and pot_id are required", i)
		}
	}
	return nil
}
