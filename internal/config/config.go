package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration, loaded from a YAML file with env
// overrides applied on top.
type Config struct {
	Port          int               `yaml:"port"`
	DBPath        string            `yaml:"db_path"`
	Seed          int64             `yaml:"seed"`
	AmplifyDepth  int               `yaml:"amplify_depth"`
	MaxConcurrent int               `yaml:"max_concurrent"`
	DataDir       string            `yaml:"data_dir"`
	StagingDirs   map[string]string `yaml:"staging_dirs"`
}

// Default returns the built-in configuration. Seed zero means "derive from
// the clock at startup"; max_concurrent zero means unbounded.
func Default() Config {
	return Config{
		Port:         3000,
		DBPath:       "creo.db",
		AmplifyDepth: 4,
		DataDir:      "data",
	}
}

// Load reads a YAML config file on top of the defaults and then applies env
// overrides. A missing file is not an error: the defaults plus env apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	if cfg.Port <= 0 {
		return cfg, fmt.Errorf("port must be positive, got %d", cfg.Port)
	}
	if cfg.AmplifyDepth < 0 {
		return cfg, fmt.Errorf("amplify_depth must not be negative, got %d", cfg.AmplifyDepth)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Port = p
		}
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("CREO_SEED"); v != "" {
		if s, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = s
		}
	}
	if v := os.Getenv("CREO_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.MaxConcurrent = n
		}
	}
}
