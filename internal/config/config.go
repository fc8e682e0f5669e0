package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jask/debtboard/internal/debt"
)

// Config holds application configuration.
type Config struct {
	API      APIConfig
	UI       UIConfig
	Payments PaymentsConfig
	Database DatabaseConfig
	Log      LogConfig
}

// APIConfig points at the customer/payment backend.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string
	Timeout time.Duration
	// Retries is how many extra times a failed list fetch is attempted.
	Retries int
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Currency  string
	SortOrder string `mapstructure:"sort_order"`
}

// PaymentsConfig holds payment rules.
type PaymentsConfig struct {
	// AllowOverpay permits amounts above the customer's current debt.
	AllowOverpay bool `mapstructure:"allow_overpay"`
}

// DatabaseConfig holds the local journal settings.
type DatabaseConfig struct {
	Path      string
	Retention time.Duration
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
	File   string
}

// Load reads configuration from .env, file and env. Env var overrides use
// prefix DEBTBOARD_.
func Load() (Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	v := viper.New()

	dataDir := DataDir()
	v.SetDefault("api.base_url", "http://localhost:8080/api")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.retries", 0)
	v.SetDefault("ui.currency", "USD")
	v.SetDefault("ui.sort_order", string(debt.SortHighest))
	v.SetDefault("payments.allow_overpay", true)
	v.SetDefault("database.path", filepath.Join(dataDir, "debtboard.db"))
	v.SetDefault("database.retention", 90*24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", filepath.Join(dataDir, "debtboard.log"))

	v.SetConfigType("toml")

	if cfgPath := os.Getenv("DEBTBOARD_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(configDir())
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("DEBTBOARD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate normalizes and checks values that the rest of the app relies on.
func (c *Config) Validate() error {
	c.API.BaseURL = strings.TrimSpace(c.API.BaseURL)
	if c.API.BaseURL == "" {
		return fmt.Errorf("config: api.base_url is required")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("config: api.timeout must not be negative")
	}
	if c.API.Retries < 0 {
		return fmt.Errorf("config: api.retries must not be negative")
	}
	c.UI.Currency = strings.TrimSpace(c.UI.Currency)
	if c.UI.Currency == "" {
		return fmt.Errorf("config: ui.currency is required")
	}
	order, err := debt.ParseSortOrder(c.UI.SortOrder)
	if err != nil {
		return fmt.Errorf("config: ui.sort_order: %w", err)
	}
	c.UI.SortOrder = string(order)
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// SaveSortOrder persists ui.sort_order into the config file, keeping every
// other value already in the file. Env and .env overrides are not written.
func SaveSortOrder(order string) error {
	parsed, err := debt.ParseSortOrder(order)
	if err != nil {
		return fmt.Errorf("config: ui.sort_order: %w", err)
	}
	path := filePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	v.Set("ui.sort_order", string(parsed))

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// filePath is the config file Load reads and SaveSortOrder writes.
func filePath() string {
	if path := os.Getenv("DEBTBOARD_CONFIG"); path != "" {
		return path
	}
	return filepath.Join(configDir(), "config.toml")
}

// DataDir is where the journal and log live by default.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "debtboard")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "debtboard")
}

func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "debtboard")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "debtboard")
}
