package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Scan struct {
		IgnoredDirs       []string `yaml:"ignored_dirs"`
		IgnoredExtensions []string `yaml:"ignored_extensions"`
		ConfigFiles       []string `yaml:"config_files"`
		MaxFileBytes      int64    `yaml:"max_file_bytes"`
		Workers           int      `yaml:"workers"`
	} `yaml:"scan"`
	Analysis struct {
		PreferredDir string `yaml:"preferred_dir"`
		ParseTimeout string `yaml:"parse_timeout"` // e.g. "2s"
		CacheSize    int    `yaml:"cache_size"`
	} `yaml:"analysis"`
	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`
	Output struct {
		Report    string `yaml:"report"`     // JSON run report path, empty disables
		HistoryDB string `yaml:"history_db"` // SQLite audit log path, empty disables
	} `yaml:"output"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Scan.IgnoredDirs = []string{".git", "__pycache__", ".venv", "venv", "node_modules", ".idea", ".vscode", ".ruff_cache"}
	cfg.Scan.IgnoredExtensions = []string{".pyc", ".log"}
	cfg.Scan.ConfigFiles = []string{"requirements.txt", "pyproject.toml", "package.json", "Dockerfile", "docker-compose.yml", ".env"}
	cfg.Scan.MaxFileBytes = 1 << 20
	cfg.Scan.Workers = 8
	cfg.Analysis.PreferredDir = "app"
	cfg.Analysis.ParseTimeout = "2s"
	cfg.Analysis.CacheSize = 512
	cfg.Log.Level = "info"
	return &cfg
}

// LoadConfig reads the YAML file at path on top of the defaults. A missing
// file is not an error.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	// 3. Override with Environment Variables if present
	if v := os.Getenv("DOCKAGENT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("DOCKAGENT_PREFERRED_DIR"); v != "" {
		cfg.Analysis.PreferredDir = v
	}
	if v := os.Getenv("DOCKAGENT_REPORT"); v != "" {
		cfg.Output.Report = v
	}
	if v := os.Getenv("DOCKAGENT_HISTORY_DB"); v != "" {
		cfg.Output.HistoryDB = v
	}
	if v := os.Getenv("DOCKAGENT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DOCKAGENT_WORKERS %q: %w", v, err)
		}
		cfg.Scan.Workers = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Scan.MaxFileBytes <= 0 {
		return fmt.Errorf("scan.max_file_bytes must be positive, got %d", c.Scan.MaxFileBytes)
	}
	if c.Scan.Workers <= 0 {
		return fmt.Errorf("scan.workers must be positive, got %d", c.Scan.Workers)
	}
	if c.Analysis.CacheSize <= 0 {
		return fmt.Errorf("analysis.cache_size must be positive, got %d", c.Analysis.CacheSize)
	}
	if _, err := c.ParseTimeout(); err != nil {
		return err
	}
	return nil
}

// ParseTimeout returns the per-file parse bound.
func (c *Config) ParseTimeout() (time.Duration, error) {
	raw := strings.TrimSpace(c.Analysis.ParseTimeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid analysis.parse_timeout %q: %w", raw, err)
	}
	return d, nil
}
