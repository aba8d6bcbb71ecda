package pruefung

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config configures the pruefbuch service.
type Config struct {
	// DBPath is the audit database file.
	DBPath string `yaml:"db_path"`

	// ObservabilityDBPath is the monitoring database file. Empty
	// disables the business event and warning log.
	ObservabilityDBPath string `yaml:"observability_db_path"`

	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// MaxRetries bounds optimistic-conflict retries per operation.
	MaxRetries int `yaml:"max_retries"`
}

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = "db/pruefbuch.db"
	}
	if c.ObservabilityDBPath == "" {
		c.ObservabilityDBPath = "db/observability.db"
	}
	if c.Listen == "" {
		c.Listen = ":8086"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
}
