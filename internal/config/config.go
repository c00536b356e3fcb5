package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the quikbridge daemon.
type Config struct {
	Gateway Gateway       `yaml:"gateway"`
	Trading TradingConfig `yaml:"trading"`
	Storage Storage       `yaml:"storage"`
	Logging Logging       `yaml:"logging"`
	Metrics Metrics       `yaml:"metrics"`
}

// Gateway holds the ZeroMQ endpoints of the terminal-side gateway.
type Gateway struct {
	RequestsAddr string `yaml:"requests_addr"`
	EventsAddr   string `yaml:"events_addr"`
	Token        string `yaml:"token"`
}

// TradingConfig defines sizing and execution parameters.
type TradingConfig struct {
	// Lots switches order quantities between whole lots and single units.
	Lots                bool   `yaml:"lots"`
	SlippageSteps       int    `yaml:"slippage_steps"`
	ClientCodeForOrders string `yaml:"client_code_for_orders"`
	Currency            string `yaml:"currency"`
	SendRatePerMin      int    `yaml:"send_rate_per_min"`
}

// Storage holds paths for data persistence.
type Storage struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Metrics configures the Prometheus scrape listener. An empty address
// disables it.
type Metrics struct {
	Addr string `yaml:"addr"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Gateway.RequestsAddr == "" {
		return fmt.Errorf("config: gateway.requests_addr is required")
	}
	if c.Gateway.EventsAddr == "" {
		return fmt.Errorf("config: gateway.events_addr is required")
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QUIK_REQUESTS_ADDR"); v != "" {
		cfg.Gateway.RequestsAddr = v
	}
	if v := os.Getenv("QUIK_EVENTS_ADDR"); v != "" {
		cfg.Gateway.EventsAddr = v
	}
	if v := os.Getenv("QUIK_TOKEN"); v != "" {
		cfg.Gateway.Token = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("CLIENT_CODE"); v != "" {
		cfg.Trading.ClientCodeForOrders = v
	}
	if v := os.Getenv("SLIPPAGE_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Trading.SlippageSteps = n
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// applyDefaults fills zero-value fields that have a sensible default.
func applyDefaults(cfg *Config) {
	if cfg.Trading.SlippageSteps == 0 {
		cfg.Trading.SlippageSteps = 10
	}
	if cfg.Trading.Currency == "" {
		cfg.Trading.Currency = "SUR"
	}
	if cfg.Trading.SendRatePerMin == 0 {
		cfg.Trading.SendRatePerMin = 60
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "quikbridge.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
