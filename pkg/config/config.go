package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	LogFormat  string `mapstructure:"LOG_FORMAT"`

	OutputDir string `mapstructure:"OUTPUT_DIR"`
	SitesFile string `mapstructure:"SITES_FILE"`

	BrowserHeadless   bool   `mapstructure:"BROWSER_HEADLESS"`
	BrowserProxies    string `mapstructure:"BROWSER_PROXIES"` // comma separated
	NavigationTimeout int    `mapstructure:"NAVIGATION_TIMEOUT_SECONDS"`
	InitialSettleMS   int    `mapstructure:"INITIAL_SETTLE_MS"`
	PageSettleMS      int    `mapstructure:"PAGE_SETTLE_MS"`
	PaginationWaitMS  int    `mapstructure:"PAGINATION_TIMEOUT_MS"`

	PostgresURL      string `mapstructure:"POSTGRES_URL"`
	RedisAddr        string `mapstructure:"REDIS_ADDR"`
	RedisPassword    string `mapstructure:"REDIS_PASSWORD"`
	RedisDB          int    `mapstructure:"REDIS_DB"`
	RecentRunTTLMins int    `mapstructure:"RECENT_RUN_TTL_MINUTES"`
}

var keys = map[string]any{
	"SERVER_PORT":                "8080",
	"LOG_LEVEL":                  "info",
	"LOG_FORMAT":                 "json",
	"OUTPUT_DIR":                 ".",
	"SITES_FILE":                 "",
	"BROWSER_HEADLESS":           true,
	"BROWSER_PROXIES":            "",
	"NAVIGATION_TIMEOUT_SECONDS": 60,
	"INITIAL_SETTLE_MS":          2000,
	"PAGE_SETTLE_MS":             1500,
	"PAGINATION_TIMEOUT_MS":      5000,
	"POSTGRES_URL":               "",
	"REDIS_ADDR":                 "",
	"REDIS_PASSWORD":             "",
	"REDIS_DB":                   0,
	"RECENT_RUN_TTL_MINUTES":     60,
}

// Load reads configuration from an optional .env file and environment variables.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		// A missing .env is fine: production configures purely through the environment.
		_ = v.ReadInConfig()
	}
	v.AutomaticEnv()

	for key, def := range keys {
		v.SetDefault(key, def)
		// AutomaticEnv only applies to keys viper already knows about.
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) InitialSettle() time.Duration {
	return time.Duration(c.InitialSettleMS) * time.Millisecond
}

func (c *Config) PageSettle() time.Duration {
	return time.Duration(c.PageSettleMS) * time.Millisecond
}

func (c *Config) PaginationTimeout() time.Duration {
	return time.Duration(c.PaginationWaitMS) * time.Millisecond
}

func (c *Config) NavigationTimeoutDuration() time.Duration {
	return time.Duration(c.NavigationTimeout) * time.Second
}

func (c *Config) RecentRunTTL() time.Duration {
	return time.Duration(c.RecentRunTTLMins) * time.Minute
}

// Proxies splits BROWSER_PROXIES into its entries.
func (c *Config) Proxies() []string {
	var out []string
	for _, p := range strings.Split(c.BrowserProxies, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
