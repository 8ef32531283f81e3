// Package config handles translog configuration loading.
//
// Configuration comes from three layers, lowest precedence first: an
// optional YAML file, a .env file in the working directory (development
// convenience), and real environment variables. The environment always
// wins because the deployment platform is the authority on credentials
// and on whether the filesystem is writable.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./translog.yaml, ~/.config/translog/config.yaml, /etc/translog/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"translog.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "translog", "config.yaml"))
	}

	paths = append(paths, "/etc/translog/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists,
// or "" if nothing was found (the config file is optional).
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", nil
}

// Config holds all translog configuration.
type Config struct {
	Listen ListenConfig `yaml:"listen"`
	Model  ModelConfig  `yaml:"model"`
	Blob   BlobConfig   `yaml:"blob"`
	Data   DataConfig   `yaml:"data"`

	// ReadOnly marks the deployment filesystem as unwritable. Write
	// operations degrade to returning data for out-of-band persistence.
	ReadOnly bool `yaml:"read_only"`

	// FunctionRoot is the deployed function's root directory, when the
	// platform relocates the process away from its bundle.
	FunctionRoot string `yaml:"function_root"`

	LogLevel string `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// ModelConfig defines the chat-completions endpoint settings.
type ModelConfig struct {
	APIKey  string   `yaml:"api_key"`
	BaseURL string   `yaml:"base_url"`
	Models  []string `yaml:"models"` // candidate model identifiers, tried in order
}

// BlobConfig defines the object-storage endpoint settings.
type BlobConfig struct {
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url"`
}

// DataConfig overrides the on-disk data locations. Empty fields fall
// back to candidate-list resolution (see the paths package).
type DataConfig struct {
	LegacyLog string `yaml:"legacy_log"` // path to the legacy markdown log
	DailyDir  string `yaml:"daily_dir"`  // directory of per-day JSON records
	MasterLog string `yaml:"master_log"` // master record JSON file
}

// Load reads configuration from an optional YAML file plus the
// environment. path may be "" when no config file exists.
func Load(path string) (*Config, error) {
	// .env is a development convenience; a missing file is fine.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		// Expand environment variables referenced in the file.
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		Model: ModelConfig{
			BaseURL: "https://api.x.ai/v1",
			Models:  []string{"grok-beta", "grok-2", "grok"},
		},
		Blob: BlobConfig{
			BaseURL: "https://blob.vercel-storage.com",
		},
	}
}

// applyEnv overlays environment variables onto the config. The deploy
// platform's environment is authoritative over any file contents.
func (c *Config) applyEnv() {
	if v := os.Getenv("XAI_API_KEY"); v != "" {
		c.Model.APIKey = v
	}
	// Legacy name kept for deployments configured before the rename.
	if c.Model.APIKey == "" {
		c.Model.APIKey = os.Getenv("GROK_API_KEY")
	}
	if v := os.Getenv("BLOB_READ_WRITE_TOKEN"); v != "" {
		c.Blob.Token = v
	}
	if v := os.Getenv("FUNCTION_ROOT"); v != "" {
		c.FunctionRoot = v
	} else if v := os.Getenv("LAMBDA_TASK_ROOT"); v != "" {
		c.FunctionRoot = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Listen.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("READ_ONLY_DEPLOYMENT"); v != "" {
		c.ReadOnly = v == "1" || v == "true"
	} else if os.Getenv("VERCEL") == "1" {
		// Serverless bundles mount the function root read-only.
		c.ReadOnly = true
	}
}
