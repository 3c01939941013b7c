package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Account   AccountConfig   `yaml:"account"`
	Catalog   []CatalogEntry  `yaml:"catalog"`
	Poll      PollConfig      `yaml:"poll"`
	Market    MarketConfig    `yaml:"market"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type AnalyzerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// AccountConfig holds the identity of the tracked Steam account. The
// cookie jar is produced by an external login step; this process only
// consumes it.
type AccountConfig struct {
	SteamID64    string `yaml:"steam_id64"`
	CookiesFile  string `yaml:"cookies_file"`
	SettingsFile string `yaml:"settings_file"`
	Currency     int    `yaml:"currency"`
	Language     string `yaml:"language"`
}

// CatalogEntry identifies one tracked inventory-bearing app/context pair.
type CatalogEntry struct {
	AppID     int    `yaml:"app_id"`
	Name      string `yaml:"name"`
	ContextID int    `yaml:"context_id"`
}

// ID returns the stable catalog key used in the persisted state document.
func (e CatalogEntry) ID() string {
	return fmt.Sprintf("%d", e.AppID)
}

type PollConfig struct {
	Interval  time.Duration `yaml:"interval"`
	StateFile string        `yaml:"state_file"`
}

type MarketConfig struct {
	MinDelay   time.Duration `yaml:"min_delay"`
	Jitter     time.Duration `yaml:"jitter"`
	MaxRetries int           `yaml:"max_retries"`
	Timeout    time.Duration `yaml:"timeout"`
}

type AnalysisConfig struct {
	MinDailySales     float64 `yaml:"min_daily_sales"`
	TurnoverThreshold float64 `yaml:"turnover_threshold"`
}

type DashboardConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Address         string        `yaml:"address"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	ResourceHistory int           `yaml:"resource_history"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// DefaultConfig returns the configuration used when a field is absent
// from the yaml file.
func DefaultConfig() Config {
	return Config{
		Analyzer: AnalyzerConfig{
			Name:    "steam-analyzer",
			Version: "dev",
		},
		Account: AccountConfig{
			CookiesFile:  "cookies.txt",
			SettingsFile: "settings.json",
			Currency:     3,
			Language:     "english",
		},
		Poll: PollConfig{
			Interval:  25 * time.Minute,
			StateFile: "inventory_state.json",
		},
		Market: MarketConfig{
			MinDelay:   3500 * time.Millisecond,
			Jitter:     1500 * time.Millisecond,
			MaxRetries: 6,
			Timeout:    20 * time.Second,
		},
		Analysis: AnalysisConfig{
			MinDailySales:     2,
			TurnoverThreshold: 0.15,
		},
		Dashboard: DashboardConfig{
			Enabled:         true,
			Address:         "0.0.0.0:8181",
			RefreshInterval: 15 * time.Second,
			ResourceHistory: 200,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			MaxAge: 7,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override account settings from environment variables if available
	if v := os.Getenv("STEAM_ID64"); v != "" {
		config.Account.SteamID64 = strings.TrimSpace(v)
	}
	if v := os.Getenv("STEAM_COOKIES_FILE"); v != "" {
		config.Account.CookiesFile = strings.TrimSpace(v)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if len(cfg.Catalog) == 0 {
		return fmt.Errorf("catalog must list at least one tracked app")
	}
	seen := make(map[int]struct{}, len(cfg.Catalog))
	for _, entry := range cfg.Catalog {
		if entry.AppID <= 0 {
			return fmt.Errorf("catalog entry %q has invalid app_id %d", entry.Name, entry.AppID)
		}
		if entry.Name == "" {
			return fmt.Errorf("catalog entry for app %d has no name", entry.AppID)
		}
		if entry.ContextID <= 0 {
			return fmt.Errorf("catalog entry %q has invalid context_id %d", entry.Name, entry.ContextID)
		}
		if _, dup := seen[entry.AppID]; dup {
			return fmt.Errorf("catalog entry %q duplicates app_id %d", entry.Name, entry.AppID)
		}
		seen[entry.AppID] = struct{}{}
	}
	if cfg.Poll.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", cfg.Poll.Interval)
	}
	if cfg.Poll.StateFile == "" {
		return fmt.Errorf("poll state_file must not be empty")
	}
	if cfg.Market.MinDelay <= 0 {
		return fmt.Errorf("market min_delay must be positive, got %s", cfg.Market.MinDelay)
	}
	if cfg.Market.Jitter < 0 {
		return fmt.Errorf("market jitter must not be negative, got %s", cfg.Market.Jitter)
	}
	if cfg.Market.MaxRetries < 1 {
		return fmt.Errorf("market max_retries must be at least 1, got %d", cfg.Market.MaxRetries)
	}
	if cfg.Market.Timeout <= 0 {
		return fmt.Errorf("market timeout must be positive, got %s", cfg.Market.Timeout)
	}
	if cfg.Analysis.MinDailySales < 0 {
		return fmt.Errorf("analysis min_daily_sales must not be negative, got %v", cfg.Analysis.MinDailySales)
	}
	if cfg.Analysis.TurnoverThreshold < 0 || cfg.Analysis.TurnoverThreshold > 1 {
		return fmt.Errorf("analysis turnover_threshold must be in [0, 1], got %v", cfg.Analysis.TurnoverThreshold)
	}
	if cfg.Dashboard.Enabled && cfg.Dashboard.Address == "" {
		return fmt.Errorf("dashboard address must not be empty when enabled")
	}
	return nil
}
